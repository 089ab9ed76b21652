package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/internal/server"
	"github.com/pilab-dev/twitched-link/pairing"
	"github.com/spf13/cobra"
)

func pairingService(e *env) *pairing.Service {
	return pairing.NewService(e.store, cache.NewTokenHasher(e.cfg.TokenHashSalt), e.logger, pairing.Options{
		OAuth:          server.OAuthConfig(e.cfg),
		DeviceTypes:    e.cfg.DeviceTypes,
		PairingTTL:     e.cfg.PairingTTL,
		TokenRecordTTL: e.cfg.TokenRecordTTL,
	})
}

func newStatusCmd() *cobra.Command {
	var deviceType, deviceID string
	var showToken bool

	c := &cobra.Command{
		Use:   "status",
		Short: "Show the pairing status of a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd.Context())
			status, err := pairingService(e).GetStatus(cmd.Context(), deviceType, deviceID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status:   %s\n", status.Status())
			if !status.Complete {
				return nil
			}
			token := "<hidden>"
			if showToken {
				token = status.Token
			}
			fmt.Fprintf(out, "token:    %s\n", token)
			fmt.Fprintf(out, "scope:    %s\n", status.Scope)
			fmt.Fprintf(out, "expires:  %ds\n", status.ExpiresIn)
			return nil
		},
	}
	c.Flags().StringVar(&deviceType, "type", "roku", "device type")
	c.Flags().StringVar(&deviceID, "id", "", "device id")
	c.Flags().BoolVar(&showToken, "show-token", false, "print the access token")
	_ = c.MarkFlagRequired("id")
	return c
}

func newCodeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "code",
		Short: "Inspect or issue pairing codes",
	}

	check := &cobra.Command{
		Use:   "check CODE",
		Short: "Tell whether a pairing code is valid and which device holds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd.Context())
			code := pairing.NormalizeCode(args[0])
			out := cmd.OutOrStdout()

			if !pairingService(e).IsCodeValid(cmd.Context(), code) {
				fmt.Fprintf(out, "%s: invalid\n", code)
				return nil
			}

			deviceKey, found, err := e.store.Get(cmd.Context(), cache.CodeKey(code))
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(out, "%s: valid (completed, device record expired)\n", code)
				return nil
			}

			raw, found, err := e.store.Get(cmd.Context(), deviceKey)
			if err != nil {
				return err
			}
			var record domain.PairingRecord
			if found {
				_ = json.Unmarshal([]byte(raw), &record)
			}
			fmt.Fprintf(out, "%s: valid, device %s/%s, protocol v%d\n", code, record.DeviceType, record.DeviceID, record.ProtocolVersion)
			return nil
		},
	}

	var deviceType, deviceID string
	var version int
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a pairing code for a device, replacing any previous one",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd.Context())
			code, err := pairingService(e).CreateCode(cmd.Context(), deviceType, deviceID, version)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	issue.Flags().StringVar(&deviceType, "type", "roku", "device type")
	issue.Flags().StringVar(&deviceID, "id", "", "device id")
	issue.Flags().IntVar(&version, "version", domain.ProtocolVersionAuthorization, "pairing protocol version (1 implicit, 2 authorization code)")
	_ = issue.MarkFlagRequired("id")

	c.AddCommand(check, issue)
	return c
}
