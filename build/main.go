package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

func run(a *goyek.A, name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		run(a, "go", "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run unit tests with the race detector",
	Action: func(a *goyek.A) {
		run(a, "go", "test", "-race", "-short", "./...")
	},
})

var _ = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "Run vet and test",
	Deps:  goyek.Deps{vet, test},
})

func main() {
	goyek.Main(os.Args[1:])
}
