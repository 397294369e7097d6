package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/avast/retry-go"
	"github.com/roffe/fdcanusb"
	"github.com/spf13/cobra"
)

var (
	sendExtended bool
	sendBRS      bool
	sendFD       bool
	sendRemote   bool
	sendRetries  uint
)

func init() {
	sendCmd.Flags().BoolVar(&sendExtended, "ext", false, "29bit extended identifier")
	sendCmd.Flags().BoolVar(&sendBRS, "brs", false, "bitrate switch")
	sendCmd.Flags().BoolVar(&sendFD, "fd", true, "CAN-FD frame")
	sendCmd.Flags().BoolVar(&sendRemote, "remote", false, "remote frame")
	sendCmd.Flags().UintVar(&sendRetries, "retries", 1, "send attempts")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <id> [hex data]",
	Short: "send a single frame and wait for the ack",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		frame, err := parseFrame(args)
		if err != nil {
			return err
		}
		fc, err := openDriver(cmd)
		if err != nil {
			return err
		}
		defer fc.Close()

		err = retry.Do(func() error {
			err := fc.Send(frame)
			var de *fdcanusb.DeviceErr
			if errors.As(err, &de) {
				// the adapter understood us and said no, resending
				// the same frame will not change its mind
				return fdcanusb.Unrecoverable(err)
			}
			return err
		},
			retry.Context(ctx),
			retry.Attempts(sendRetries),
			retry.RetryIf(fdcanusb.IsRecoverable),
			retry.OnRetry(func(n uint, err error) {
				log.Printf("retry %d: %v", n, err)
			}),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return err
		}
		log.Printf("sent %s", frame.String())
		return nil
	},
}

func parseFrame(args []string) (*fdcanusb.Frame, error) {
	var flags fdcanusb.Flag
	if sendBRS {
		flags |= fdcanusb.FlagBRS
	}
	if sendFD {
		flags |= fdcanusb.FlagFD
	}
	if sendRemote {
		flags |= fdcanusb.FlagRemote
	}
	dataStr := ""
	if len(args) == 2 {
		dataStr = args[1]
	}
	return buildFrame(args[0], dataStr, sendExtended, flags)
}

func buildFrame(idStr, dataStr string, extended bool, flags fdcanusb.Flag) (*fdcanusb.Frame, error) {
	id, err := strconv.ParseUint(idStr, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid identifier %q: %w", idStr, err)
	}
	var data []byte
	if dataStr != "" {
		data, err = hex.DecodeString(dataStr)
		if err != nil {
			return nil, fmt.Errorf("invalid payload %q: %w", dataStr, err)
		}
	}
	if extended {
		return fdcanusb.NewExtendedFrame(uint32(id), data, flags)
	}
	return fdcanusb.NewFrame(uint32(id), data, flags)
}
