package api

import "github.com/cuemby/aifs/pkg/types"

// Request/response payloads for the AIFS RPC surface. These are plain Go
// structs marshaled by jsonCodec rather than generated from a .proto file
// (see doc.go) — field names are the wire JSON names directly.

type ParentDependency struct {
	ParentID        string `json:"parent_id"`
	TransformName   string `json:"transform_name"`
	TransformDigest string `json:"transform_digest"`
}

type PutAssetRequest struct {
	Data          []byte               `json:"data"`
	Kind          types.AssetKind      `json:"kind"`
	Embedding     []float32            `json:"embedding,omitempty"`
	UserMetadata  map[string]string    `json:"user_metadata,omitempty"`
	Parents       []ParentDependency   `json:"parents,omitempty"`
	TransactionID string               `json:"transaction_id,omitempty"`
}

type PutAssetResponse struct {
	AssetID string `json:"asset_id"`
}

type GetAssetRequest struct {
	AssetID string `json:"asset_id"`
}

type GetAssetResponse struct {
	Asset    *types.Asset          `json:"asset"`
	Data     []byte                `json:"data"`
	Parents  []*types.LineageEdge  `json:"parents,omitempty"`
	Children []*types.LineageEdge  `json:"children,omitempty"`
}

type DeleteAssetRequest struct {
	AssetID string `json:"asset_id"`
	Force   bool   `json:"force,omitempty"`
}

type DeleteAssetResponse struct {
	Deleted bool `json:"deleted"`
}

type VectorSearchRequest struct {
	Query []float32 `json:"query"`
	K     int       `json:"k"`
}

type VectorSearchResponse struct {
	Matches []vectorMatch `json:"matches"`
}

type vectorMatch struct {
	AssetID  string  `json:"asset_id"`
	Distance float64 `json:"distance"`
}

type CreateSnapshotRequest struct {
	Namespace    string            `json:"namespace"`
	AssetIDs     []string          `json:"asset_ids"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

type CreateSnapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type GetSnapshotRequest struct {
	SnapshotID string `json:"snapshot_id"`
}

type GetSnapshotResponse struct {
	Snapshot *types.Snapshot `json:"snapshot"`
}

type VerifySnapshotRequest struct {
	SnapshotID string `json:"snapshot_id"`
}

type VerifySnapshotResponse struct {
	Valid bool `json:"valid"`
}

type ListVerifiedSnapshotsRequest struct {
	Namespace string `json:"namespace"`
}

type ListVerifiedSnapshotsResponse struct {
	Snapshots []*types.Snapshot `json:"snapshots"`
}

type CreateNamespaceRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type CreateNamespaceResponse struct {
	Namespace *types.Namespace `json:"namespace"`
}

type GetNamespaceRequest struct {
	Name string `json:"name"`
}

type GetNamespaceResponse struct {
	Namespace *types.Namespace `json:"namespace"`
}

type ListNamespacesRequest struct{}

type ListNamespacesResponse struct {
	Namespaces []*types.Namespace `json:"namespaces"`
}

type DeleteNamespaceRequest struct {
	Name string `json:"name"`
}

type DeleteNamespaceResponse struct {
	Deleted bool `json:"deleted"`
}

type UpdateBranchRequest struct {
	Namespace  string            `json:"namespace"`
	BranchName string            `json:"branch_name"`
	SnapshotID string            `json:"snapshot_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type UpdateBranchResponse struct {
	Branch *types.Branch `json:"branch"`
}

type GetBranchRequest struct {
	Namespace  string `json:"namespace"`
	BranchName string `json:"branch_name"`
}

type GetBranchResponse struct {
	Branch *types.Branch `json:"branch"`
}

type ListBranchesRequest struct {
	Namespace string `json:"namespace"`
}

type ListBranchesResponse struct {
	Branches []*types.Branch `json:"branches"`
}

type BranchHistoryRequest struct {
	Namespace  string `json:"namespace"`
	BranchName string `json:"branch_name"`
}

type BranchHistoryResponse struct {
	Entries []*types.BranchHistoryEntry `json:"entries"`
}

type DeleteBranchRequest struct {
	Namespace  string `json:"namespace"`
	BranchName string `json:"branch_name"`
}

type DeleteBranchResponse struct {
	Deleted bool `json:"deleted"`
}

type CreateTagRequest struct {
	Namespace  string            `json:"namespace"`
	TagName    string            `json:"tag_name"`
	SnapshotID string            `json:"snapshot_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type CreateTagResponse struct {
	Tag *types.Tag `json:"tag"`
}

type GetTagRequest struct {
	Namespace string `json:"namespace"`
	TagName   string `json:"tag_name"`
}

type GetTagResponse struct {
	Tag *types.Tag `json:"tag"`
}

type ListTagsRequest struct {
	Namespace string `json:"namespace"`
}

type ListTagsResponse struct {
	Tags []*types.Tag `json:"tags"`
}

type DeleteTagRequest struct {
	Namespace string `json:"namespace"`
	TagName   string `json:"tag_name"`
}

type DeleteTagResponse struct {
	Deleted bool `json:"deleted"`
}

type BeginTransactionRequest struct{}

type BeginTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

type CommitTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type CommitTransactionResponse struct {
	Committed bool `json:"committed"`
}

type RollbackTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type RollbackTransactionResponse struct {
	RolledBack bool `json:"rolled_back"`
}

type GetTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type GetTransactionResponse struct {
	Transaction *types.Transaction `json:"transaction"`
}

type GenerateTokenRequest struct {
	Permissions []types.Permission `json:"permissions"`
	Namespace   string              `json:"namespace,omitempty"`
	TTLSeconds  int64               `json:"ttl_seconds"`
}

type GenerateTokenResponse struct {
	Token *types.CapabilityToken `json:"token"`
}

type RevokeTokenRequest struct {
	TokenID string `json:"token_id"`
}

type RevokeTokenResponse struct {
	Revoked bool `json:"revoked"`
}

type StatisticsRequest struct{}

type StatisticsResponse struct {
	Assets       int                            `json:"assets"`
	Namespaces   int                            `json:"namespaces"`
	VectorCount  int                            `json:"vector_count"`
	KMSKeys      int                            `json:"kms_keys"`
	KMSExpired   int                            `json:"kms_expired"`
	Transactions map[types.TransactionState]int `json:"transactions"`
}
