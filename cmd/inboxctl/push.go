package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Manage this device's push token registration",
	}
	cmd.AddCommand(newPushRegisterCommand(rootOpts))
	cmd.AddCommand(newPushUnregisterCommand(rootOpts))
	return cmd
}

func newPushRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		deviceToken string
		platform    string
		denied      bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Associate a device push token with the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deviceToken == "" {
				return errors.New("--device-token is required")
			}
			client, err := rootOpts.client()
			if err != nil {
				return err
			}
			outcome, err := client.RegisterPush(cmd.Context(), deviceToken, platform, !denied)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
	cmd.Flags().StringVar(&deviceToken, "device-token", "", "push token issued by the platform")
	cmd.Flags().StringVar(&platform, "platform", "ios", "ios|android|web")
	cmd.Flags().BoolVar(&denied, "denied", false, "report that notification permission was denied")
	return cmd
}

func newPushUnregisterCommand(rootOpts *RootOptions) *cobra.Command {
	var deviceToken string
	cmd := &cobra.Command{
		Use:   "unregister",
		Short: "Remove a device push token (sign-out)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deviceToken == "" {
				return errors.New("--device-token is required")
			}
			client, err := rootOpts.client()
			if err != nil {
				return err
			}
			return client.UnregisterPush(cmd.Context(), deviceToken)
		},
	}
	cmd.Flags().StringVar(&deviceToken, "device-token", "", "push token to remove")
	return cmd
}
