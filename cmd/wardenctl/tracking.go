package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	trackingCmd := &cobra.Command{Use: "tracking", Short: "Time tracking operations"}

	var nameFlag, roleFlag, initiatorFlag, initiatorNameFlag string

	startCmd := &cobra.Command{
		Use:   "start ENTITY_ID",
		Short: "Start tracking for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"displayName": nameFlag}
			if roleFlag != "" {
				payload["roleType"] = roleFlag
			}
			if initiatorFlag != "" {
				payload["initiatorId"] = initiatorFlag
				payload["initiatorName"] = initiatorNameFlag
			}
			out, err := postJSON(fmt.Sprintf("/api/entities/%s/tracking/start", args[0]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	startCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Display name (required)")
	startCmd.Flags().StringVarP(&roleFlag, "role", "r", "", "Role type (normal|unlimited)")
	startCmd.Flags().StringVar(&initiatorFlag, "initiator", "", "Initiating admin ID")
	startCmd.Flags().StringVar(&initiatorNameFlag, "initiator-name", "", "Initiating admin name")
	_ = startCmd.MarkFlagRequired("name")
	trackingCmd.AddCommand(startCmd)

	var preNameFlag, preInitiatorFlag, preInitiatorNameFlag string
	preCmd := &cobra.Command{
		Use:   "preregister ENTITY_ID",
		Short: "Pre-register an entity for the next auto-start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"displayName": preNameFlag}
			if preInitiatorFlag != "" {
				payload["initiatorId"] = preInitiatorFlag
				payload["initiatorName"] = preInitiatorNameFlag
			}
			out, err := postJSON(fmt.Sprintf("/api/entities/%s/tracking/preregister", args[0]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	preCmd.Flags().StringVarP(&preNameFlag, "name", "n", "", "Display name (required)")
	preCmd.Flags().StringVar(&preInitiatorFlag, "initiator", "", "Initiating admin ID")
	preCmd.Flags().StringVar(&preInitiatorNameFlag, "initiator-name", "", "Initiating admin name")
	_ = preCmd.MarkFlagRequired("name")
	trackingCmd.AddCommand(preCmd)

	var pauseRoleFlag string
	pauseCmd := &cobra.Command{
		Use:   "pause ENTITY_ID",
		Short: "Pause an active tracking session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{}
			if pauseRoleFlag != "" {
				payload["roleType"] = pauseRoleFlag
			}
			out, err := postJSON(fmt.Sprintf("/api/entities/%s/tracking/pause", args[0]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	pauseCmd.Flags().StringVarP(&pauseRoleFlag, "role", "r", "", "Role type (normal|unlimited)")
	trackingCmd.AddCommand(pauseCmd)

	for _, verb := range []string{"resume", "stop", "cancel", "reset"} {
		verb := verb
		trackingCmd.AddCommand(&cobra.Command{
			Use:   fmt.Sprintf("%s ENTITY_ID", verb),
			Short: fmt.Sprintf("%s tracking for an entity", verb),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := postJSON(fmt.Sprintf("/api/entities/%s/tracking/%s", args[0], verb), nil)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(os.Stdout, out)
				return nil
			},
		})
	}

	var minutesFlag int
	addCmd := &cobra.Command{
		Use:   "add ENTITY_ID",
		Short: "Credit minutes to an entity's total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := postJSON(fmt.Sprintf("/api/entities/%s/time/add", args[0]),
				map[string]interface{}{"minutes": minutesFlag})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	addCmd.Flags().IntVarP(&minutesFlag, "minutes", "m", 0, "Minutes to add (required)")
	_ = addCmd.MarkFlagRequired("minutes")
	trackingCmd.AddCommand(addCmd)

	var subMinutesFlag int
	subCmd := &cobra.Command{
		Use:   "subtract ENTITY_ID",
		Short: "Deduct minutes from an entity's total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := postJSON(fmt.Sprintf("/api/entities/%s/time/subtract", args[0]),
				map[string]interface{}{"minutes": subMinutesFlag})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	subCmd.Flags().IntVarP(&subMinutesFlag, "minutes", "m", 0, "Minutes to subtract (required)")
	_ = subCmd.MarkFlagRequired("minutes")
	trackingCmd.AddCommand(subCmd)

	trackingCmd.AddCommand(&cobra.Command{
		Use:   "get ENTITY_ID",
		Short: "Show one entity's tracking record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := getJSON(fmt.Sprintf("/api/entities/%s", args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	})

	trackingCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all tracking records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := getJSON("/api/entities")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	})

	trackingCmd.AddCommand(&cobra.Command{
		Use:   "remove ENTITY_ID",
		Short: "Delete an entity's tracking record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := deleteJSON(fmt.Sprintf("/api/entities/%s", args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	})

	trackingCmd.AddCommand(&cobra.Command{
		Use:   "reset-all",
		Short: "Reset every tracking record to inactive with zero time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := postJSON("/api/tracking/reset", nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	})

	trackingCmd.AddCommand(&cobra.Command{
		Use:   "wipe",
		Short: "Delete every tracking record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := deleteJSON("/api/tracking")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	})

	rootCmd.AddCommand(trackingCmd)
}
