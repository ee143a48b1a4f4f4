package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/kymaza/darasa/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf *core.Config
	log  core.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  hashpassword - hash the admin password for ADMINPASSWORDHASH (prompted)")
	fmt.Println("  seedreport   - scan all sheets and print the seeded ID counters")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedReportCmd := flag.NewFlagSet("seedreport", flag.ExitOnError)

	switch args[1] {
	case "hashpassword":
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPassword(string(pwd))
	case "seedreport":
		if err := seedReportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.seedReport()
	default:
		cli.printUsage()
		return errHelp
	}
}
