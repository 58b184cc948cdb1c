package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/internal/usecase"

	"github.com/spf13/cobra"
)

// Deps is what every command needs to act on a client's wizard
type Deps struct {
	Usecase  domain.OnboardingUsecase
	Stores   domain.OnboardingStoreFactory
	Sequence domain.StepSequence
}

// DepsLoader opens storage lazily so --help never touches the backend.
// The returned func releases whatever was opened.
type DepsLoader func(ctx context.Context) (*Deps, func(), error)

// NewRootCommand builds the onboardctl command tree
func NewRootCommand(load DepsLoader) *cobra.Command {
	root := &cobra.Command{
		Use:   "onboardctl",
		Short: "Inspect and repair client onboarding wizards",
		Long: `onboardctl is the support tool for the KYC onboarding wizard.
It reads and writes the same storage backend as the API, selected by
STORAGE_DRIVER, and acts with operator rights on any client.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newStateCommand(load),
		newReconcileCommand(load),
		newSetStepCommand(load),
		newStatusCommand(load),
		newResetCommand(load),
	)

	return root
}

func withDeps(load DepsLoader, run func(ctx context.Context, cmd *cobra.Command, deps *Deps, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := domain.OperatorContext(cmd.Context())

		deps, release, err := load(ctx)
		if err != nil {
			return err
		}
		defer release()

		return run(ctx, cmd, deps, args)
	}
}

func newStateCommand(load DepsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "state <client-id>",
		Short: "Print the client's onboarding state",
		Long: `state prints every step with its status and access flag.
Loading the state also heals completed steps whose form data is gone,
exactly as the client would see it on their next visit.`,
		Args: cobra.ExactArgs(1),
		RunE: withDeps(load, func(ctx context.Context, cmd *cobra.Command, deps *Deps, args []string) error {
			view, err := deps.Usecase.GetState(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		}),
	}
}

func newReconcileCommand(load DepsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <client-id>",
		Short: "Reset completed steps that have no saved form data",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(load, func(ctx context.Context, cmd *cobra.Command, deps *Deps, args []string) error {
			result, err := deps.Usecase.Reconcile(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		}),
	}
}

func newSetStepCommand(load DepsLoader) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "set-step <client-id> <step>",
		Short: "Move the client's wizard to a step",
		Long: `set-step moves the wizard the same way the client would, so locked
steps are refused. Use --force to place the client on any known step.`,
		Args: cobra.ExactArgs(2),
		RunE: withDeps(load, func(ctx context.Context, cmd *cobra.Command, deps *Deps, args []string) error {
			ctrl, err := usecase.LoadStepController(ctx, deps.Sequence, deps.Stores.ForClient(args[0]))
			if err != nil {
				return err
			}

			step := domain.StepID(args[1])
			if force {
				err = ctrl.SetCurrentStep(ctx, step)
			} else {
				var moved bool
				moved, err = ctrl.NavigateToStep(ctx, step)
				if err == nil && !moved {
					err = fmt.Errorf("%w: %s", domain.ErrStepNotAccessible, step)
				}
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, ctrl.View())
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the access check")

	return cmd
}

func newStatusCommand(load DepsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "status <client-id> <step> <status>",
		Short: "Overwrite one step status",
		Long: `status writes a step status directly, without the transition rules
enforced for clients. Valid statuses: not_started, in_progress, completed,
failed, cancelled.`,
		Args: cobra.ExactArgs(3),
		RunE: withDeps(load, func(ctx context.Context, cmd *cobra.Command, deps *Deps, args []string) error {
			ctrl, err := usecase.LoadStepController(ctx, deps.Sequence, deps.Stores.ForClient(args[0]))
			if err != nil {
				return err
			}
			if err := ctrl.UpdateStepStatus(ctx, domain.StepID(args[1]), domain.StepStatus(args[2])); err != nil {
				return err
			}
			return printJSON(cmd, ctrl.View())
		}),
	}
}

func newResetCommand(load DepsLoader) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset <client-id>",
		Short: "Delete the client's onboarding state and saved forms",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(load, func(ctx context.Context, cmd *cobra.Command, deps *Deps, args []string) error {
			if !yes {
				return errors.New("reset deletes every saved form, pass --yes to confirm")
			}
			if err := deps.Usecase.Reset(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "onboarding reset for %s\n", args[0])
			return nil
		}),
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")

	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
