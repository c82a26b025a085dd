package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/walletbridge/internal/bridgeclient"
	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/vk/walletbridge/internal/events"
	"github.com/vk/walletbridge/modules/callbackmanager"
)

const defaultURL = "http://127.0.0.1:7007/socket.io/"

func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("url", defaultURL, "socket.io URL of a running bridge.")
	f.Duration("timeout", 10*time.Second, "How long to wait for the bridge.")
	f.Bool("insecure", false, "Skip TLS certificate verification.")
}

func (r *root) newCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call MODULE METHOD [JSON]",
		Short: "Call a native method on a running bridge",
		Example: `  walletbridge call WalletSdk initialize '{"endpoint":"https://wallet.example"}'
  walletbridge call WalletSdk setupDevice '{"user_id":"u1","token_id":"t1"}' --follow`,
		Args: usageArgs(cobra.RangeArgs(2, 3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload json.RawMessage
			if len(args) == 3 {
				if !json.Valid([]byte(args[2])) {
					return usageError("invalid JSON arguments")
				}
				payload = json.RawMessage(args[2])
			}
			return r.call(cmd.Context(), args[0], args[1], payload, r.v.GetBool("follow"))
		},
	}
	addClientFlags(cmd)
	cmd.Flags().Bool("follow", false, "Print interaction events for the returned UUID until the workflow ends.")
	return cmd
}

func (r *root) newRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove UUID",
		Short: "Remove a tracked interaction from a running bridge",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{"uuid": args[0]})
			if err != nil {
				return err
			}
			return r.call(cmd.Context(), callbackmanager.Name, "remove", payload, false)
		},
	}
	addClientFlags(cmd)
	return cmd
}

func (r *root) call(ctx context.Context, module, method string, payload json.RawMessage, follow bool) error {
	ctx = ctxlog.WithLogger(ctx, r.logger())
	ctx, cancel := context.WithTimeout(ctx, r.v.GetDuration("timeout"))
	defer cancel()

	client, err := bridgeclient.Dial(ctx, r.v.GetString("url"), bridgeclient.Options{
		InsecureSkipVerify: r.v.GetBool("insecure"),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	// Subscribe before calling so early callbacks are not missed.
	evs := make(chan events.Event, 64)
	if follow {
		client.OnInteraction(func(ev events.Event) {
			select {
			case evs <- ev:
			default:
			}
		})
	}

	var args any
	if payload != nil {
		args = payload
	}
	result, err := client.Call(ctx, module, method, args)
	if err != nil {
		return err
	}
	if err := r.printJSON(result); err != nil {
		return err
	}
	if !follow {
		return nil
	}

	var ref struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(result, &ref); err != nil || ref.UUID == "" {
		return fmt.Errorf("%s.%s did not return an interaction uuid", module, method)
	}
	return r.follow(ctx, ref.UUID, evs)
}

func (r *root) follow(ctx context.Context, uuid string, evs <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("stopped following %s: %w", uuid, ctx.Err())
		case ev := <-evs:
			if ev.UUID != uuid {
				continue
			}
			line, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			fmt.Fprintln(r.outW, string(line))
			if ev.Name == events.FlowComplete || ev.Name == events.FlowInterrupt {
				return nil
			}
		}
	}
}

func (r *root) printJSON(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := r.outW.Write(buf.Bytes())
	return err
}
