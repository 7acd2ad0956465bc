package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trellisgraph/trellis/internal/token"
)

// Flags shared by the mutation commands.
var (
	opActor     string
	opFamily    string
	opTarget    string
	opRecipient string
	opResource  string
	opAsset     uint64
	opAmount    uint64
	opNote      string
)

func addMutationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&opActor, "actor", "", "address performing the operation (required)")
	cmd.Flags().StringVar(&opFamily, "family", "nonfungible", "resource family: nonfungible, fungible, or counted")
	cmd.Flags().StringVar(&opResource, "resource", "", "currency or multi-asset collection address (fungible, counted)")
	cmd.Flags().Uint64Var(&opAsset, "asset", 0, "asset id within the multi-asset collection (counted)")
	cmd.Flags().StringVar(&opNote, "note", "", "opaque annotation carried on the notification")
	_ = cmd.MarkFlagRequired("actor")
}

var linkCmd = &cobra.Command{
	Use:   "link <node> <target>",
	Short: "Link a node (or attach a resource) under a target node",
	Long: `Link composes a node under a target node. For the nonfungible family
the node itself is re-parented and its custody moves to the engine. For
the fungible and counted families, --amount units of --resource are
attached to the node given as the first argument; no target argument is
used.

Examples:
  trellis link kanaria/1 kanaria/2 --actor alice
  trellis link kanaria/2 --family fungible --resource gold --amount 100 --actor alice
  trellis link kanaria/2 --family counted --resource gems --asset 7 --amount 3 --actor alice`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLink,
}

var retargetCmd = &cobra.Command{
	Use:   "retarget <node> <new-target>",
	Short: "Move an existing link or attachment to a new target",
	Args:  cobra.ExactArgs(2),
	RunE:  runRetarget,
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <node>",
	Short: "Remove a link or attachment, releasing custody to a recipient",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(retargetCmd)
	rootCmd.AddCommand(unlinkCmd)

	addMutationFlags(linkCmd)
	linkCmd.Flags().Uint64Var(&opAmount, "amount", 0, "units to attach (fungible, counted)")

	addMutationFlags(retargetCmd)

	addMutationFlags(unlinkCmd)
	unlinkCmd.Flags().StringVar(&opRecipient, "recipient", "", "address receiving custody (required)")
	_ = unlinkCmd.MarkFlagRequired("recipient")
}

// withEngine runs op against a freshly opened engine and tears it down.
func withEngine(op func(ctx context.Context, eng *engine) error) error {
	cleanup, err := initLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	return op(context.Background(), eng)
}

func runLink(_ *cobra.Command, args []string) error {
	node, err := token.ParseID(args[0])
	if err != nil {
		return err
	}
	note := []byte(opNote)

	return withEngine(func(ctx context.Context, eng *engine) error {
		switch opFamily {
		case "nonfungible":
			if len(args) != 2 {
				return fmt.Errorf("nonfungible link needs a target argument")
			}
			target, err := token.ParseID(args[1])
			if err != nil {
				return err
			}
			if err := eng.proto.LinkNonFungible(ctx, opActor, node, target, note); err != nil {
				return err
			}
			fmt.Printf("Linked %s under %s\n", node, target)
		case "fungible":
			if err := eng.proto.LinkFungible(ctx, opActor, opResource, node, opAmount, note); err != nil {
				return err
			}
			fmt.Printf("Attached %d %s to %s\n", opAmount, opResource, node)
		case "counted":
			if err := eng.proto.LinkCountedAsset(ctx, opActor, opResource, opAsset, node, opAmount, note); err != nil {
				return err
			}
			fmt.Printf("Attached %d of %s asset %d to %s\n", opAmount, opResource, opAsset, node)
		default:
			return fmt.Errorf("unknown family %q", opFamily)
		}
		return nil
	})
}

func runRetarget(_ *cobra.Command, args []string) error {
	node, err := token.ParseID(args[0])
	if err != nil {
		return err
	}
	target, err := token.ParseID(args[1])
	if err != nil {
		return err
	}
	note := []byte(opNote)

	return withEngine(func(ctx context.Context, eng *engine) error {
		switch opFamily {
		case "nonfungible":
			err = eng.proto.UpdateNonFungibleTarget(ctx, opActor, node, target, note)
		case "fungible":
			err = eng.proto.UpdateFungibleTarget(ctx, opActor, opResource, node, target, note)
		case "counted":
			err = eng.proto.UpdateCountedAssetTarget(ctx, opActor, opResource, opAsset, node, target, note)
		default:
			return fmt.Errorf("unknown family %q", opFamily)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Retargeted %s to %s\n", node, target)
		return nil
	})
}

func runUnlink(_ *cobra.Command, args []string) error {
	node, err := token.ParseID(args[0])
	if err != nil {
		return err
	}
	note := []byte(opNote)

	return withEngine(func(ctx context.Context, eng *engine) error {
		switch opFamily {
		case "nonfungible":
			err = eng.proto.UnlinkNonFungible(ctx, opActor, opRecipient, node, note)
		case "fungible":
			err = eng.proto.UnlinkFungible(ctx, opActor, opRecipient, opResource, node, note)
		case "counted":
			err = eng.proto.UnlinkCountedAsset(ctx, opActor, opRecipient, opResource, opAsset, node, note)
		default:
			return fmt.Errorf("unknown family %q", opFamily)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Unlinked %s; custody released to %s\n", node, opRecipient)
		return nil
	})
}
