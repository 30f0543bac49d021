package main

import (
	"fmt"
	"os"

	"github.com/nstehr/eocatr-core/cli"
)

const banner = `
███████╗ ██████╗  ██████╗ █████╗ ████████╗██████╗
██╔════╝██╔═══██╗██╔════╝██╔══██╗╚══██╔══╝██╔══██╗
█████╗  ██║   ██║██║     ███████║   ██║   ██████╔╝
██╔══╝  ██║   ██║██║     ██╔══██║   ██║   ██╔══██╗
███████╗╚██████╔╝╚██████╗██║  ██║   ██║   ██║  ██║
╚══════╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝

Rule Induction and Causal-Chain Planning`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		fmt.Fprintln(os.Stderr, banner)
	}
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
