package cmd

import (
	"fmt"
	"log"

	"github.com/roffe/fdcanusb"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "print every frame seen on the bus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fc, err := openDriver(cmd)
		if err != nil {
			return err
		}
		bus := fdcanusb.NewBus(fc)
		bus.Start(ctx)
		defer bus.Close()

		log.Println("entering monitoring mode, ctrl-c to quit")
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case err := <-bus.Err():
					return err
				case f := <-bus.Recv():
					fmt.Println(f.ColorString())
				case evt := <-bus.Event():
					log.Println(evt.String())
				}
			}
		})
		return g.Wait()
	},
}
