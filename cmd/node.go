package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trellisgraph/trellis/internal/token"
)

var (
	nodeFamily   string
	nodeResource string
	nodeAsset    uint64
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Query composition state of a node",
}

var nodeRootCmd = &cobra.Command{
	Use:   "root <node>",
	Short: "Resolve the root of a node's composition",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return nodeQuery(args[0], func(_ context.Context, eng *engine, node token.ID) error {
			root, err := eng.proto.FindRootToken(node)
			if err != nil {
				return err
			}
			fmt.Println(root)
			return nil
		})
	},
}

var nodeTargetCmd = &cobra.Command{
	Use:   "target <node>",
	Short: "Show the node's direct target, if linked",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return nodeQuery(args[0], func(_ context.Context, eng *engine, node token.ID) error {
			target, linked := eng.proto.Target(node)
			if !linked {
				fmt.Printf("%s is not linked\n", node)
				return nil
			}
			fmt.Println(target)
			return nil
		})
	},
}

var nodeChildrenCmd = &cobra.Command{
	Use:   "children <node>",
	Short: "List the nodes linked directly under a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return nodeQuery(args[0], func(_ context.Context, eng *engine, node token.ID) error {
			children := eng.proto.Children(node)
			if len(children) == 0 {
				fmt.Printf("%s has no children\n", node)
				return nil
			}
			for _, child := range children {
				fmt.Println(child)
			}
			return nil
		})
	},
}

var nodeBalanceCmd = &cobra.Command{
	Use:   "balance <node>",
	Short: "Show the attached amount of one resource on a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return nodeQuery(args[0], func(_ context.Context, eng *engine, node token.ID) error {
			var amount uint64
			switch nodeFamily {
			case "fungible":
				amount = eng.proto.BalanceOfFungible(node, nodeResource)
			case "counted":
				amount = eng.proto.BalanceOfCountedAsset(node, nodeResource, nodeAsset)
			default:
				return fmt.Errorf("--family must be \"fungible\" or \"counted\", got %q", nodeFamily)
			}
			fmt.Println(amount)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.AddCommand(nodeRootCmd)
	nodeCmd.AddCommand(nodeTargetCmd)
	nodeCmd.AddCommand(nodeChildrenCmd)
	nodeCmd.AddCommand(nodeBalanceCmd)

	nodeBalanceCmd.Flags().StringVar(&nodeFamily, "family", "fungible", "resource family: fungible or counted")
	nodeBalanceCmd.Flags().StringVar(&nodeResource, "resource", "", "currency or multi-asset collection address (required)")
	nodeBalanceCmd.Flags().Uint64Var(&nodeAsset, "asset", 0, "asset id within the multi-asset collection (counted)")
	_ = nodeBalanceCmd.MarkFlagRequired("resource")
}

// nodeQuery parses the node argument and runs fn against a fresh engine.
func nodeQuery(arg string, fn func(ctx context.Context, eng *engine, node token.ID) error) error {
	node, err := token.ParseID(arg)
	if err != nil {
		return err
	}
	return withEngine(func(ctx context.Context, eng *engine) error {
		return fn(ctx, eng, node)
	})
}
