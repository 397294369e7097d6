package cmd

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/roffe/fdcanusb"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var rootCmd = &cobra.Command{
	Use:          "fdcantool",
	Short:        "FdCanUSB swiss army tool",
	Long:         `Send, monitor, replay and bridge CAN-FD frames through an mjbots FdCanUSB`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	rootCmd.ExecuteContext(ctx)
}

const (
	flagPort    = "port"
	flagTimeout = "timeout"
	flagDebug   = "debug"
	flagConfig  = "config"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "", "serial port, empty = autodetect or prompt")
	pf.DurationP(flagTimeout, "t", 100*time.Millisecond, "response timeout")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.StringP(flagConfig, "c", "", "yaml settings file")
}

func openDriver(cmd *cobra.Command) (*fdcanusb.FdCanUSB, error) {
	set, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	portName := set.Port
	if portName == "" {
		portName, err = pickPort()
		if err != nil {
			return nil, err
		}
	}
	fc, err := fdcanusb.Open(portName, &fdcanusb.Config{
		ReadTimeout: set.Timeout,
		BufferSize:  set.BufferSize,
		BufferLimit: set.BufferLimit,
		Debug:       set.Debug,
		OnMessage: func(msg string) {
			log.Println(msg)
		},
	})
	if err != nil {
		return nil, err
	}
	if err := fc.Flush(); err != nil {
		fc.Close()
		return nil, err
	}
	return fc, nil
}

// pickPort prefers a lone FdCanUSB on the system, otherwise prompts.
func pickPort() (string, error) {
	if ports, err := fdcanusb.FindPorts(); err == nil && len(ports) == 1 {
		log.Printf("using %s", ports[0])
		return ports[0], nil
	}
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	prompt := promptui.Select{
		Label:    "Select port",
		HideHelp: true,
		Items:    ports,
	}
	_, result, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return result, nil
}
