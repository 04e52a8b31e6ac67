package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/nutricount/internal/auth"
	"github.com/rshade/nutricount/internal/config"
)

// ErrPINMismatch is returned when the PIN confirmation differs.
var ErrPINMismatch = errors.New("PINs do not match")

// NewPinCmd creates the pin command group.
func NewPinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pin",
		Short:   "Manage the PIN that guards the data store",
		GroupID: groupSetup,
	}
	cmd.AddCommand(newPinSetCmd(), newPinStatusCmd())
	return cmd
}

func newPinSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Set or change the PIN (4 to 8 digits)",
		Long: `Set or change the PIN. When a PIN already exists it must be entered first.
Outside a terminal the current PIN is read from NUTRICOUNT_PIN and the new one
from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			debug, _ := cmd.Flags().GetBool("debug")
			s, err := openStore(storeConfig(cmd), debug)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := s.Close(); err == nil && closeErr != nil {
					err = closeErr
				}
			}()

			ctx := cmd.Context()
			gate := newGate(config.GetGlobalConfig(), s)
			configured, err := gate.Configured(ctx)
			if err != nil {
				return err
			}
			if configured {
				if err = verifyPIN(cmd, gate); err != nil {
					return err
				}
			}

			pin, err := readNewPIN(cmd)
			if err != nil {
				return err
			}
			if err = gate.SetPIN(ctx, pin); err != nil {
				return err
			}
			cmd.Println("PIN saved")
			if !config.GetGlobalConfig().Auth.Enabled {
				cmd.Println("Enable it with: nutricount config set auth.enabled true")
			}
			return nil
		},
	}
}

func readNewPIN(cmd *cobra.Command) (string, error) {
	pin, err := readSecret(cmd, "New PIN: ")
	if err != nil {
		return "", err
	}
	if err = auth.ValidatePIN(pin); err != nil {
		return "", err
	}
	if !stdinIsTerminal() {
		return pin, nil
	}
	confirm, err := readSecret(cmd, "Repeat PIN: ")
	if err != nil {
		return "", err
	}
	if confirm != pin {
		return "", ErrPINMismatch
	}
	return pin, nil
}

func newPinStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a PIN is set and the lockout state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			debug, _ := cmd.Flags().GetBool("debug")
			s, err := openStore(storeConfig(cmd), debug)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := s.Close(); err == nil && closeErr != nil {
					err = closeErr
				}
			}()

			ctx := cmd.Context()
			gate := newGate(config.GetGlobalConfig(), s)
			configured, err := gate.Configured(ctx)
			if err != nil {
				return err
			}
			state, err := gate.Status(ctx)
			if err != nil {
				return err
			}

			cmd.Printf("PIN configured: %t\n", configured)
			cmd.Printf("Gate enabled:   %t\n", config.GetGlobalConfig().Auth.Enabled)
			cmd.Printf("Failed attempts: %d\n", state.FailedAttempts)
			if now := time.Now(); now.Before(state.LockedUntil) {
				cmd.Printf("Locked for %s\n", state.LockedUntil.Sub(now).Round(time.Second))
			}
			return nil
		},
	}
}
