package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/roffe/fdcanusb"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := fdcanusb.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
			return nil
		}
		candidates, _ := fdcanusb.FindPorts()
		isCandidate := make(map[string]bool)
		for _, p := range candidates {
			isCandidate[p] = true
		}
		for _, p := range ports {
			if isCandidate[firstField(p)] {
				color.Green("%s  <- FdCanUSB", p)
				continue
			}
			fmt.Println(p)
		}
		return nil
	},
}

func firstField(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return s[:i]
		}
	}
	return s
}
