package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trellisgraph/trellis/internal/assets"
	"github.com/trellisgraph/trellis/internal/config"
	"github.com/trellisgraph/trellis/internal/token"
)

var (
	mintOwner  string
	mintAmount uint64
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Create tokens and balances in the local collaborators",
	Long: `Mint creates assets in the database-backed reference collaborators so
compositions can be built without external asset services. Minting into
an address not yet listed in the config registers it there, so the
daemon picks it up on its next config reload.`,
}

var mintTokenCmd = &cobra.Command{
	Use:   "token <collection/id>",
	Short: "Mint a non-fungible token to an owner",
	Args:  cobra.ExactArgs(1),
	RunE:  runMintToken,
}

var mintCurrencyCmd = &cobra.Command{
	Use:   "currency <address>",
	Short: "Mint currency units to a holder",
	Args:  cobra.ExactArgs(1),
	RunE:  runMintCurrency,
}

var mintAssetCmd = &cobra.Command{
	Use:   "asset <collection/asset-id>",
	Short: "Mint counted multi-asset units to a holder",
	Args:  cobra.ExactArgs(1),
	RunE:  runMintAsset,
}

func init() {
	rootCmd.AddCommand(mintCmd)
	mintCmd.AddCommand(mintTokenCmd)
	mintCmd.AddCommand(mintCurrencyCmd)
	mintCmd.AddCommand(mintAssetCmd)

	for _, c := range []*cobra.Command{mintTokenCmd, mintCurrencyCmd, mintAssetCmd} {
		c.Flags().StringVar(&mintOwner, "to", "", "owner address receiving the minted asset (required)")
		_ = c.MarkFlagRequired("to")
	}
	mintCurrencyCmd.Flags().Uint64Var(&mintAmount, "amount", 0, "units to mint (required)")
	_ = mintCurrencyCmd.MarkFlagRequired("amount")
	mintAssetCmd.Flags().Uint64Var(&mintAmount, "amount", 0, "units to mint (required)")
	_ = mintAssetCmd.MarkFlagRequired("amount")
}

func runMintToken(_ *cobra.Command, args []string) error {
	id, err := token.ParseID(args[0])
	if err != nil {
		return err
	}
	return withEngine(func(ctx context.Context, eng *engine) error {
		col := assets.NewLocalCollection(eng.db.Connection(), id.Collection)
		if err := col.Mint(ctx, mintOwner, id.Token); err != nil {
			return err
		}
		if err := registerAddress("collections", id.Collection); err != nil {
			return err
		}
		fmt.Printf("Minted %s to %s\n", id, mintOwner)
		return nil
	})
}

func runMintCurrency(_ *cobra.Command, args []string) error {
	address := args[0]
	return withEngine(func(ctx context.Context, eng *engine) error {
		cur := assets.NewLocalCurrency(eng.db.Connection(), address)
		if err := cur.Mint(ctx, mintOwner, mintAmount); err != nil {
			return err
		}
		if err := registerAddress("currencies", address); err != nil {
			return err
		}
		fmt.Printf("Minted %d %s to %s\n", mintAmount, address, mintOwner)
		return nil
	})
}

func runMintAsset(_ *cobra.Command, args []string) error {
	id, err := token.ParseID(args[0])
	if err != nil {
		return err
	}
	return withEngine(func(ctx context.Context, eng *engine) error {
		ma := assets.NewLocalMultiAsset(eng.db.Connection(), id.Collection)
		if err := ma.Mint(ctx, mintOwner, id.Token, mintAmount); err != nil {
			return err
		}
		if err := registerAddress("multiassets", id.Collection); err != nil {
			return err
		}
		fmt.Printf("Minted %d of %s asset %d to %s\n", mintAmount, id.Collection, id.Token, mintOwner)
		return nil
	})
}

// registerAddress records the collaborator address in the config file so
// future engine starts host it.
func registerAddress(family, address string) error {
	updated, err := config.RegisterAddress(configFilePath(), cfg.Directory, family, address)
	if err != nil {
		return fmt.Errorf("registering %s address %s: %w", family, address, err)
	}
	cfg.Directory = updated
	return nil
}
