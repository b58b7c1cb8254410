package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/aifs/pkg/api"
	"github.com/cuemby/aifs/pkg/client"
	"github.com/cuemby/aifs/pkg/types"
)

// Version information (set via ldflags during build)
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aifsctl",
	Short:   "aifsctl is the command-line client for an AIFS server",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("aifsctl version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("server", "127.0.0.1:9090", "AIFS RPC server address")
	rootCmd.PersistentFlags().String("token", "", "Bearer capability token")

	rootCmd.AddCommand(assetCmd, snapshotCmd, namespaceCmd, branchCmd, tagCmd, txnCmd, tokenCmd, statsCmd)
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	var opts []client.Option
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.NewClient(addr, opts...)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// asset

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Put, get, delete, and search assets",
}

var assetPutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Store a file's bytes as a new asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		kind, _ := cmd.Flags().GetString("kind")
		txnID, _ := cmd.Flags().GetString("txn")

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		assetID, err := c.PutAsset(context.Background(), &api.PutAssetRequest{
			Data:          data,
			Kind:          types.AssetKind(kind),
			TransactionID: txnID,
		})
		if err != nil {
			return err
		}
		fmt.Println(assetID)
		return nil
	},
}

var assetGetCmd = &cobra.Command{
	Use:   "get <asset-id> <out-file>",
	Short: "Fetch an asset's plaintext and write it to out-file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.GetAsset(context.Background(), args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], resp.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", args[1], err)
		}
		fmt.Printf("wrote %d bytes (kind=%s, %d parents, %d children)\n",
			len(resp.Data), resp.Asset.Kind, len(resp.Parents), len(resp.Children))
		return nil
	},
}

var assetDeleteCmd = &cobra.Command{
	Use:   "delete <asset-id>",
	Short: "Delete an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		deleted, err := c.DeleteAsset(context.Background(), args[0], force)
		if err != nil {
			return err
		}
		fmt.Printf("deleted=%v\n", deleted)
		return nil
	},
}

var assetSearchCmd = &cobra.Command{
	Use:   "search <k> <v1,v2,...>",
	Short: "Find the k nearest embeddings to a comma-separated vector",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("k must be an integer: %w", err)
		}
		query, err := parseVector(args[1])
		if err != nil {
			return err
		}

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.VectorSearch(context.Background(), query, k)
		if err != nil {
			return err
		}
		printJSON(resp.Matches)
		return nil
	},
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out = append(out, float32(f))
	}
	return out, nil
}

func init() {
	assetPutCmd.Flags().String("kind", string(types.AssetKindBlob), "Asset kind (blob, tensor, embedding, artifact)")
	assetPutCmd.Flags().String("txn", "", "Enroll the put in an existing transaction")
	assetDeleteCmd.Flags().Bool("force", false, "Delete even if referenced, unless pinned by a snapshot")

	assetCmd.AddCommand(assetPutCmd, assetGetCmd, assetDeleteCmd, assetSearchCmd)
}

// snapshot

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Create, inspect, and verify snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <namespace> <asset-id> [asset-id...]",
	Short: "Build and sign a snapshot over the given assets",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		snapshotID, err := c.CreateSnapshot(context.Background(), args[0], args[1:], nil)
		if err != nil {
			return err
		}
		fmt.Println(snapshotID)
		return nil
	},
}

var snapshotGetCmd = &cobra.Command{
	Use:   "get <snapshot-id>",
	Short: "Show a snapshot record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.GetSnapshot(context.Background(), args[0])
		if err != nil {
			return err
		}
		printJSON(resp.Snapshot)
		return nil
	},
}

var snapshotVerifyCmd = &cobra.Command{
	Use:   "verify <snapshot-id>",
	Short: "Verify a snapshot's Ed25519 signature against its Merkle root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		valid, err := c.VerifySnapshot(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("valid=%v\n", valid)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list <namespace>",
	Short: "List every signature-verified snapshot in a namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		snaps, err := c.ListVerifiedSnapshots(context.Background(), args[0])
		if err != nil {
			return err
		}
		printJSON(snaps)
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotGetCmd, snapshotVerifyCmd, snapshotListCmd)
}

// namespace

var namespaceCmd = &cobra.Command{
	Use:   "namespace",
	Short: "Create and list namespaces",
}

var namespaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a namespace and provision its signing key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("description")
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.CreateNamespace(context.Background(), args[0], desc, nil)
		if err != nil {
			return err
		}
		printJSON(resp.Namespace)
		return nil
	},
}

var namespaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.ListNamespaces(context.Background())
		if err != nil {
			return err
		}
		printJSON(resp.Namespaces)
		return nil
	},
}

func init() {
	namespaceCreateCmd.Flags().String("description", "", "Human-readable namespace description")
	namespaceCmd.AddCommand(namespaceCreateCmd, namespaceListCmd)
}

// branch

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Update, inspect, and list the history of branches",
}

var branchUpdateCmd = &cobra.Command{
	Use:   "update <namespace> <branch> <snapshot-id>",
	Short: "Create or repoint a branch to a snapshot",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.UpdateBranch(context.Background(), args[0], args[1], args[2], nil)
		if err != nil {
			return err
		}
		printJSON(resp.Branch)
		return nil
	},
}

var branchGetCmd = &cobra.Command{
	Use:   "get <namespace> <branch>",
	Short: "Show a branch's current pointer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.GetBranch(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		printJSON(resp.Branch)
		return nil
	},
}

var branchHistoryCmd = &cobra.Command{
	Use:   "history <namespace> <branch>",
	Short: "Show a branch's pointer-update history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.BranchHistory(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		printJSON(resp.Entries)
		return nil
	},
}

func init() {
	branchCmd.AddCommand(branchUpdateCmd, branchGetCmd, branchHistoryCmd)
}

// tag

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Create and inspect write-once tags",
}

var tagCreateCmd = &cobra.Command{
	Use:   "create <namespace> <tag> <snapshot-id>",
	Short: "Bind a tag to a snapshot (write-once)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.CreateTag(context.Background(), args[0], args[1], args[2], nil)
		if err != nil {
			return err
		}
		printJSON(resp.Tag)
		return nil
	},
}

var tagGetCmd = &cobra.Command{
	Use:   "get <namespace> <tag>",
	Short: "Show a tag's snapshot pointer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.GetTag(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		printJSON(resp.Tag)
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagCreateCmd, tagGetCmd)
}

// transaction

var txnCmd = &cobra.Command{
	Use:   "txn",
	Short: "Begin, commit, and roll back transactions",
}

var txnBeginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Open a new PENDING transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		id, err := c.BeginTransaction(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var txnCommitCmd = &cobra.Command{
	Use:   "commit <txn-id>",
	Short: "Commit a transaction, refused if a parent dependency is not yet visible",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		committed, err := c.CommitTransaction(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("committed=%v\n", committed)
		return nil
	},
}

var txnRollbackCmd = &cobra.Command{
	Use:   "rollback <txn-id>",
	Short: "Roll back a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		rolledBack, err := c.RollbackTransaction(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("rolled_back=%v\n", rolledBack)
		return nil
	},
}

func init() {
	txnCmd.AddCommand(txnBeginCmd, txnCommitCmd, txnRollbackCmd)
}

// token

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint capability tokens",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate <namespace> <perm1,perm2,...>",
	Short: "Mint a bearer capability token scoped to namespace and permissions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetInt64("ttl-seconds")
		perms := make([]types.Permission, 0)
		for _, p := range strings.Split(args[1], ",") {
			perms = append(perms, types.Permission(strings.TrimSpace(p)))
		}

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.GenerateToken(context.Background(), &api.GenerateTokenRequest{
			Namespace:   args[0],
			Permissions: perms,
			TTLSeconds:  ttl,
		})
		if err != nil {
			return err
		}
		printJSON(resp.Token)
		return nil
	},
}

func init() {
	tokenGenerateCmd.Flags().Int64("ttl-seconds", 86400, "Token time-to-live in seconds")
	tokenCmd.AddCommand(tokenGenerateCmd)
}

// statistics

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show engine-wide counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Statistics(context.Background())
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}
