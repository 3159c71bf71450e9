package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/bchgate/internal/gateway"
	"github.com/Klingon-tech/bchgate/internal/indexer"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

func newPubKeyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pubkey <address>",
		Short: "Find the public key behind an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.backends.Resolver.ResolvePublicKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := newPrinter(cmd, o.json)
			if !res.Found() {
				return out.print(gateway.PubKeyResponse{Error: "public key not found: " + res.Status.String()},
					"No public key found (%s)\n", res.Status)
			}
			return out.print(gateway.PubKeyResponse{Success: true, PublicKey: res.Value},
				"Public key: %s\nSpent in:   %s\n", res.Value, res.TxID)
		},
	}
}

func newPointerCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pointer <documentHash>",
		Short: "Decode the mutable data address a token document hash points to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mda, err := o.backends.Resolver.DecodeMutablePointer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return newPrinter(cmd, o.json).print(map[string]string{"mda": mda},
				"Mutable data address: %s\n", mda)
		},
	}
}

func newRecordCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "record <mda>",
		Short: "Find the latest authentic record published from a mutable data address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.backends.Resolver.ResolveMutableRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printMutable(cmd, o, res.Value, res.TxID)
		},
	}
}

func newMutableCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mutable <documentHash>",
		Short: "Resolve a document hash to its current mutable data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.backends.Resolver.ResolveMutableData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printMutable(cmd, o, res.Value, res.TxID)
		},
	}
}

func newTokenCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "token <tokenId>",
		Short: "Resolve a token's document hash to its current mutable data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.cfg.Indexer.TokenURL == "" {
				return errors.New("no token indexer configured (--token-indexer-url)")
			}
			id, err := types.ParseTokenID(args[0])
			if err != nil {
				return err
			}
			hash, err := o.backends.Indexer.TokenDocumentHash(cmd.Context(), id)
			if errors.Is(err, indexer.ErrTokenNotFound) {
				return printMutable(cmd, o, "", "")
			}
			if err != nil {
				return err
			}
			if hash == "" {
				return printMutable(cmd, o, "", "")
			}
			res, err := o.backends.Resolver.ResolveMutableData(cmd.Context(), hash)
			if err != nil {
				return err
			}
			return printMutable(cmd, o, res.Value, res.TxID)
		},
	}
}

func printMutable(cmd *cobra.Command, o *options, cid, txid string) error {
	out := newPrinter(cmd, o.json)
	if cid == "" {
		return out.print(gateway.MutableDataResponse{}, "No mutable data found\n")
	}
	return out.print(gateway.MutableDataResponse{MutableData: cid},
		"Mutable data: %s\nRecord tx:    %s\n", cid, txid)
}

func newAddressCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "address <address>",
		Short: "Normalize an address and show its legacy form (offline)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := o.backends.Codec
			norm, err := codec.Normalize(args[0])
			if err != nil {
				return err
			}
			legacy, err := codec.Legacy(norm)
			if err != nil {
				return err
			}
			return newPrinter(cmd, o.json).print(
				map[string]string{"cashaddr": norm, "legacy": legacy, "network": codec.Params().Name},
				"CashAddr: %s\nLegacy:   %s\n", norm, legacy)
		},
	}
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the full node answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.cfg.Node.Timeout)
			defer cancel()
			height, err := o.backends.Node.BlockCount(ctx)
			if err != nil {
				return fmt.Errorf("full node: %w", err)
			}
			return newPrinter(cmd, o.json).print(
				map[string]interface{}{"network": string(o.cfg.Network), "height": height},
				"Network: %s\nHeight:  %d\n", o.cfg.Network, height)
		},
	}
}
