package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/cuemby/aifs/pkg/api"
)

// Client is a thin AIFS RPC client: one struct wrapping a *grpc.ClientConn
// with one method per RPC, each opening its own bounded-timeout context.
// Calls are dispatched with ClientConn.Invoke directly against the method paths
// service.go's ServiceDesc registers, since there is no generated client
// stub for this hand-authored surface (see pkg/api/doc.go's "Wire format"
// section).
type Client struct {
	conn  *grpc.ClientConn
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer capability token (spec §6.5) attached to every
// call this client makes.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient dials addr and returns a ready-to-use Client. AIFS's RPC
// surface rides plain gRPC with the jsonCodec content-subtype (codec.go);
// transport security is left to the caller's dial options — this
// constructor uses insecure transport credentials, matching a local or
// already-tunnelled deployment, and is not itself a security boundary.
func NewClient(addr string, opts ...Option) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := &Client{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) ctx(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "bearer "+c.token)
	}
	return ctx, cancel
}

func (c *Client) call(ctx context.Context, method string, req, resp interface{}) error {
	return c.conn.Invoke(ctx, "/aifs.AIFS/"+method, req, resp)
}

// PutAsset stores data under kind, optionally enrolling parents/embedding.
func (c *Client) PutAsset(ctx context.Context, req *api.PutAssetRequest) (string, error) {
	ctx, cancel := c.ctx(ctx, 30*time.Second)
	defer cancel()
	resp := &api.PutAssetResponse{}
	if err := c.call(ctx, "PutAsset", req, resp); err != nil {
		return "", err
	}
	return resp.AssetID, nil
}

// GetAsset fetches assetID's plaintext, metadata, and lineage.
func (c *Client) GetAsset(ctx context.Context, assetID string) (*api.GetAssetResponse, error) {
	ctx, cancel := c.ctx(ctx, 30*time.Second)
	defer cancel()
	resp := &api.GetAssetResponse{}
	if err := c.call(ctx, "GetAsset", &api.GetAssetRequest{AssetID: assetID}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteAsset removes assetID, optionally forcing past a visible-child check.
func (c *Client) DeleteAsset(ctx context.Context, assetID string, force bool) (bool, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.DeleteAssetResponse{}
	if err := c.call(ctx, "DeleteAsset", &api.DeleteAssetRequest{AssetID: assetID, Force: force}, resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// VectorSearch ranks the k nearest embeddings to query.
func (c *Client) VectorSearch(ctx context.Context, query []float32, k int) (*api.VectorSearchResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.VectorSearchResponse{}
	if err := c.call(ctx, "VectorSearch", &api.VectorSearchRequest{Query: query, K: k}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateSnapshot builds and signs a snapshot over assetIDs in namespace.
func (c *Client) CreateSnapshot(ctx context.Context, namespace string, assetIDs []string, metadata map[string]string) (string, error) {
	ctx, cancel := c.ctx(ctx, 30*time.Second)
	defer cancel()
	resp := &api.CreateSnapshotResponse{}
	req := &api.CreateSnapshotRequest{Namespace: namespace, AssetIDs: assetIDs, UserMetadata: metadata}
	if err := c.call(ctx, "CreateSnapshot", req, resp); err != nil {
		return "", err
	}
	return resp.SnapshotID, nil
}

// GetSnapshot returns a snapshot record by ID.
func (c *Client) GetSnapshot(ctx context.Context, snapshotID string) (*api.GetSnapshotResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.GetSnapshotResponse{}
	if err := c.call(ctx, "GetSnapshot", &api.GetSnapshotRequest{SnapshotID: snapshotID}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// VerifySnapshot reports whether snapshotID's signature verifies.
func (c *Client) VerifySnapshot(ctx context.Context, snapshotID string) (bool, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.VerifySnapshotResponse{}
	if err := c.call(ctx, "VerifySnapshot", &api.VerifySnapshotRequest{SnapshotID: snapshotID}, resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// ListVerifiedSnapshots lists every signature-verified snapshot in namespace.
func (c *Client) ListVerifiedSnapshots(ctx context.Context, namespace string) ([]*api.GetSnapshotResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.ListVerifiedSnapshotsResponse{}
	if err := c.call(ctx, "ListVerifiedSnapshots", &api.ListVerifiedSnapshotsRequest{Namespace: namespace}, resp); err != nil {
		return nil, err
	}
	out := make([]*api.GetSnapshotResponse, 0, len(resp.Snapshots))
	for _, s := range resp.Snapshots {
		out = append(out, &api.GetSnapshotResponse{Snapshot: s})
	}
	return out, nil
}

// CreateNamespace registers a namespace, provisioning its signing key.
func (c *Client) CreateNamespace(ctx context.Context, name, description string, metadata map[string]string) (*api.CreateNamespaceResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.CreateNamespaceResponse{}
	req := &api.CreateNamespaceRequest{Name: name, Description: description, Metadata: metadata}
	if err := c.call(ctx, "CreateNamespace", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListNamespaces lists every registered namespace.
func (c *Client) ListNamespaces(ctx context.Context) (*api.ListNamespacesResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.ListNamespacesResponse{}
	if err := c.call(ctx, "ListNamespaces", &api.ListNamespacesRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateBranch creates or repoints namespace/branchName to snapshotID.
func (c *Client) UpdateBranch(ctx context.Context, namespace, branchName, snapshotID string, metadata map[string]string) (*api.UpdateBranchResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.UpdateBranchResponse{}
	req := &api.UpdateBranchRequest{Namespace: namespace, BranchName: branchName, SnapshotID: snapshotID, Metadata: metadata}
	if err := c.call(ctx, "UpdateBranch", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBranch returns namespace/branchName's current pointer.
func (c *Client) GetBranch(ctx context.Context, namespace, branchName string) (*api.GetBranchResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.GetBranchResponse{}
	req := &api.GetBranchRequest{Namespace: namespace, BranchName: branchName}
	if err := c.call(ctx, "GetBranch", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// BranchHistory returns namespace/branchName's pointer-update history.
func (c *Client) BranchHistory(ctx context.Context, namespace, branchName string) (*api.BranchHistoryResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.BranchHistoryResponse{}
	req := &api.BranchHistoryRequest{Namespace: namespace, BranchName: branchName}
	if err := c.call(ctx, "BranchHistory", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateTag binds namespace/tagName to snapshotID (write-once).
func (c *Client) CreateTag(ctx context.Context, namespace, tagName, snapshotID string, metadata map[string]string) (*api.CreateTagResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.CreateTagResponse{}
	req := &api.CreateTagRequest{Namespace: namespace, TagName: tagName, SnapshotID: snapshotID, Metadata: metadata}
	if err := c.call(ctx, "CreateTag", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetTag returns namespace/tagName's snapshot pointer.
func (c *Client) GetTag(ctx context.Context, namespace, tagName string) (*api.GetTagResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.GetTagResponse{}
	req := &api.GetTagRequest{Namespace: namespace, TagName: tagName}
	if err := c.call(ctx, "GetTag", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// BeginTransaction opens a new PENDING transaction.
func (c *Client) BeginTransaction(ctx context.Context) (string, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.BeginTransactionResponse{}
	if err := c.call(ctx, "BeginTransaction", &api.BeginTransactionRequest{}, resp); err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}

// CommitTransaction attempts to commit txnID.
func (c *Client) CommitTransaction(ctx context.Context, txnID string) (bool, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.CommitTransactionResponse{}
	if err := c.call(ctx, "CommitTransaction", &api.CommitTransactionRequest{TransactionID: txnID}, resp); err != nil {
		return false, err
	}
	return resp.Committed, nil
}

// RollbackTransaction discards txnID.
func (c *Client) RollbackTransaction(ctx context.Context, txnID string) (bool, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.RollbackTransactionResponse{}
	if err := c.call(ctx, "RollbackTransaction", &api.RollbackTransactionRequest{TransactionID: txnID}, resp); err != nil {
		return false, err
	}
	return resp.RolledBack, nil
}

// GenerateToken mints a new capability token.
func (c *Client) GenerateToken(ctx context.Context, req *api.GenerateTokenRequest) (*api.GenerateTokenResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.GenerateTokenResponse{}
	if err := c.call(ctx, "GenerateToken", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Statistics returns engine-wide counters (no authorization required).
func (c *Client) Statistics(ctx context.Context) (*api.StatisticsResponse, error) {
	ctx, cancel := c.ctx(ctx, 10*time.Second)
	defer cancel()
	resp := &api.StatisticsResponse{}
	if err := c.call(ctx, "Statistics", &api.StatisticsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
