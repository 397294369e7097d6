package cmd

import (
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/roffe/fdcanusb"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var bridgeBroker string

func init() {
	bridgeCmd.Flags().StringVar(&bridgeBroker, "broker", "", "mqtt broker url, e.g. tcp://localhost:1883")
	rootCmd.AddCommand(bridgeCmd)
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "bridge the bus to an mqtt broker",
	Long: `Publishes received frames on the rx topic as "<hex id>#<hex payload>"
and sends frames arriving on the tx topic in the same format.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		set, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if bridgeBroker != "" {
			set.Bridge.Broker = bridgeBroker
		}
		if set.Bridge.Broker == "" {
			return fmt.Errorf("no broker configured")
		}

		fc, err := openDriver(cmd)
		if err != nil {
			return err
		}
		bus := fdcanusb.NewBus(fc)
		bus.Start(ctx)
		defer bus.Close()

		opts := mqtt.NewClientOptions().
			AddBroker(set.Bridge.Broker).
			SetClientID(set.Bridge.ClientID).
			SetAutoReconnect(true)
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to connect to broker: %w", token.Error())
		}
		defer client.Disconnect(250)

		token := client.Subscribe(set.Bridge.TxTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			frame, err := parseBridgePayload(string(msg.Payload()))
			if err != nil {
				log.Printf("dropped mqtt message: %v", err)
				return
			}
			select {
			case bus.Send() <- frame:
			default:
				log.Println("dropped mqtt message, send channel full")
			}
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe: %w", token.Error())
		}

		log.Printf("bridging %s <-> %s", set.Bridge.Broker, set.Port)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case err := <-bus.Err():
					return err
				case f := <-bus.Recv():
					payload := fmt.Sprintf("%s#%X", f.Identifier.Hex(), f.Data)
					client.Publish(set.Bridge.RxTopic, 0, false, payload)
				case evt := <-bus.Event():
					log.Println(evt.String())
				}
			}
		})
		return g.Wait()
	},
}

func parseBridgePayload(payload string) (*fdcanusb.Frame, error) {
	idStr, dataStr, found := strings.Cut(payload, "#")
	if !found {
		return nil, fmt.Errorf("malformed payload %q", payload)
	}
	return buildFrame(idStr, dataStr, len(idStr) > 4, fdcanusb.FlagFD)
}
