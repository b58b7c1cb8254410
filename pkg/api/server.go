package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/cuemby/aifs/pkg/aifserrors"
	"github.com/cuemby/aifs/pkg/log"
	"github.com/cuemby/aifs/pkg/manager"
	"github.com/cuemby/aifs/pkg/metrics"
)

// Server implements AIFSServer (spec §6.3's AIFS method group) over an
// *manager.AssetManager, dispatched through the hand-authored ServiceDesc
// (service.go) and jsonCodec (codec.go) instead of generated protobuf stubs:
// one struct wrapping the orchestration layer, constructed once and
// registered on a grpc.Server.
type Server struct {
	manager *manager.AssetManager
	tokens  *manager.TokenManager
	grpc    *grpc.Server
	version string
}

// NewServer builds a Server around mgr and tokens, registering
// AuthInterceptor so every RPC (other than Statistics, which is left open
// for unauthenticated local tooling per service.go's requiredPermission)
// enforces the bearer capability token named in spec §6.5.
func NewServer(mgr *manager.AssetManager, tokens *manager.TokenManager, version string) *Server {
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(chainUnary(metricsInterceptor, AuthInterceptor(tokens))),
	)
	s := &Server{manager: mgr, tokens: tokens, grpc: grpcServer, version: version}
	grpcServer.RegisterService(&ServiceDesc, s)
	return s
}

// chainUnary composes two unary interceptors in call order.
func chainUnary(first, second grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return first(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return second(ctx, req, info, handler)
		})
	}
}

// metricsInterceptor records per-method request counts and latency
// (spec §6.3's Metrics group).
func metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	method := methodNameOf(info.FullMethod)
	timer := metrics.NewTimer()
	resp, err := handler(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.APIRequestsTotal.WithLabelValues(method, status).Inc()
	timer.ObserveDurationVec(metrics.APIRequestDuration, method)
	return resp, err
}

// Start listens on addr and serves the AIFS RPC surface, blocking until the
// server stops.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	log.Logger.Info().Str("addr", addr).Msg("aifs rpc server listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully drains in-flight RPCs and stops the server.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	_ = metrics.ShutdownOTel(context.Background())
}

func (s *Server) PutAsset(ctx context.Context, req *PutAssetRequest) (*PutAssetResponse, error) {
	parents := make([]manager.ParentDependency, 0, len(req.Parents))
	for _, p := range req.Parents {
		parents = append(parents, manager.ParentDependency{
			ParentID:        p.ParentID,
			TransformName:   p.TransformName,
			TransformDigest: p.TransformDigest,
		})
	}
	timer := metrics.NewTimer()
	assetID, err := s.manager.PutAsset(manager.PutAssetRequest{
		Data:          req.Data,
		Kind:          req.Kind,
		Embedding:     req.Embedding,
		UserMetadata:  req.UserMetadata,
		Parents:       parents,
		TransactionID: req.TransactionID,
	})
	timer.ObserveDuration(metrics.PutAssetDuration)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	metrics.OTelAssetsPut.Add(ctx, 1)
	return &PutAssetResponse{AssetID: assetID}, nil
}

func (s *Server) GetAsset(ctx context.Context, req *GetAssetRequest) (*GetAssetResponse, error) {
	timer := metrics.NewTimer()
	rec, err := s.manager.GetAsset(req.AssetID)
	timer.ObserveDuration(metrics.GetAssetDuration)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &GetAssetResponse{Asset: rec.Asset, Data: rec.Data, Parents: rec.Parents, Children: rec.Children}, nil
}

func (s *Server) DeleteAsset(ctx context.Context, req *DeleteAssetRequest) (*DeleteAssetResponse, error) {
	ok, err := s.manager.DeleteAsset(req.AssetID, req.Force)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	if ok {
		metrics.OTelAssetsDeleted.Add(ctx, 1)
	}
	return &DeleteAssetResponse{Deleted: ok}, nil
}

func (s *Server) VectorSearch(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResponse, error) {
	timer := metrics.NewTimer()
	matches, err := s.manager.VectorSearch(req.Query, req.K)
	timer.ObserveDuration(metrics.VectorSearchDuration)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	metrics.OTelVectorSearches.Add(ctx, 1)
	out := make([]vectorMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, vectorMatch{AssetID: m.AssetID, Distance: m.Distance})
	}
	return &VectorSearchResponse{Matches: out}, nil
}

func (s *Server) CreateSnapshot(ctx context.Context, req *CreateSnapshotRequest) (*CreateSnapshotResponse, error) {
	timer := metrics.NewTimer()
	snapshotID, err := s.manager.CreateSnapshot(req.Namespace, req.AssetIDs, req.UserMetadata)
	timer.ObserveDuration(metrics.CreateSnapshotDuration)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	metrics.SnapshotsTotal.WithLabelValues(req.Namespace).Inc()
	metrics.OTelSnapshotsCreated.Add(ctx, 1)
	return &CreateSnapshotResponse{SnapshotID: snapshotID}, nil
}

func (s *Server) GetSnapshot(ctx context.Context, req *GetSnapshotRequest) (*GetSnapshotResponse, error) {
	snap, err := s.manager.GetSnapshot(req.SnapshotID)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &GetSnapshotResponse{Snapshot: snap}, nil
}

func (s *Server) VerifySnapshot(ctx context.Context, req *VerifySnapshotRequest) (*VerifySnapshotResponse, error) {
	ok, err := s.manager.VerifySnapshot(req.SnapshotID)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &VerifySnapshotResponse{Valid: ok}, nil
}

// ListVerifiedSnapshots returns only signature-verified snapshots; a
// snapshot whose signature fails re-verification is filtered out, never
// surfaced as an error (spec §4.10).
func (s *Server) ListVerifiedSnapshots(ctx context.Context, req *ListVerifiedSnapshotsRequest) (*ListVerifiedSnapshotsResponse, error) {
	snaps, err := s.manager.ListVerifiedSnapshots(req.Namespace)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &ListVerifiedSnapshotsResponse{Snapshots: snaps}, nil
}

func (s *Server) CreateNamespace(ctx context.Context, req *CreateNamespaceRequest) (*CreateNamespaceResponse, error) {
	ns, err := s.manager.CreateNamespace(req.Name, req.Description, req.Metadata)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &CreateNamespaceResponse{Namespace: ns}, nil
}

func (s *Server) GetNamespace(ctx context.Context, req *GetNamespaceRequest) (*GetNamespaceResponse, error) {
	ns, err := s.manager.GetNamespace(req.Name)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &GetNamespaceResponse{Namespace: ns}, nil
}

func (s *Server) ListNamespaces(ctx context.Context, req *ListNamespacesRequest) (*ListNamespacesResponse, error) {
	namespaces, err := s.manager.ListNamespaces()
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &ListNamespacesResponse{Namespaces: namespaces}, nil
}

func (s *Server) DeleteNamespace(ctx context.Context, req *DeleteNamespaceRequest) (*DeleteNamespaceResponse, error) {
	if err := s.manager.DeleteNamespace(req.Name); err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &DeleteNamespaceResponse{Deleted: true}, nil
}

func (s *Server) UpdateBranch(ctx context.Context, req *UpdateBranchRequest) (*UpdateBranchResponse, error) {
	branch, err := s.manager.UpdateBranch(req.Namespace, req.BranchName, req.SnapshotID, req.Metadata)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &UpdateBranchResponse{Branch: branch}, nil
}

func (s *Server) GetBranch(ctx context.Context, req *GetBranchRequest) (*GetBranchResponse, error) {
	branch, err := s.manager.GetBranch(req.Namespace, req.BranchName)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &GetBranchResponse{Branch: branch}, nil
}

func (s *Server) ListBranches(ctx context.Context, req *ListBranchesRequest) (*ListBranchesResponse, error) {
	branches, err := s.manager.ListBranches(req.Namespace)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &ListBranchesResponse{Branches: branches}, nil
}

func (s *Server) BranchHistory(ctx context.Context, req *BranchHistoryRequest) (*BranchHistoryResponse, error) {
	entries, err := s.manager.BranchHistory(req.Namespace, req.BranchName)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &BranchHistoryResponse{Entries: entries}, nil
}

func (s *Server) DeleteBranch(ctx context.Context, req *DeleteBranchRequest) (*DeleteBranchResponse, error) {
	if err := s.manager.DeleteBranch(req.Namespace, req.BranchName); err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &DeleteBranchResponse{Deleted: true}, nil
}

func (s *Server) CreateTag(ctx context.Context, req *CreateTagRequest) (*CreateTagResponse, error) {
	tag, err := s.manager.CreateTag(req.Namespace, req.TagName, req.SnapshotID, req.Metadata)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &CreateTagResponse{Tag: tag}, nil
}

func (s *Server) GetTag(ctx context.Context, req *GetTagRequest) (*GetTagResponse, error) {
	tag, err := s.manager.GetTag(req.Namespace, req.TagName)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &GetTagResponse{Tag: tag}, nil
}

func (s *Server) ListTags(ctx context.Context, req *ListTagsRequest) (*ListTagsResponse, error) {
	tags, err := s.manager.ListTags(req.Namespace)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &ListTagsResponse{Tags: tags}, nil
}

// DeleteTag is policy-gated: only callers holding the "admin" permission
// reach this handler (see service.go's requiredPermission for DeleteTag).
func (s *Server) DeleteTag(ctx context.Context, req *DeleteTagRequest) (*DeleteTagResponse, error) {
	if err := s.manager.DeleteTag(req.Namespace, req.TagName); err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &DeleteTagResponse{Deleted: true}, nil
}

func (s *Server) BeginTransaction(ctx context.Context, req *BeginTransactionRequest) (*BeginTransactionResponse, error) {
	txnID, err := s.manager.BeginTransaction()
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &BeginTransactionResponse{TransactionID: txnID}, nil
}

func (s *Server) CommitTransaction(ctx context.Context, req *CommitTransactionRequest) (*CommitTransactionResponse, error) {
	timer := metrics.NewTimer()
	ok, err := s.manager.CommitTransaction(req.TransactionID)
	timer.ObserveDuration(metrics.TransactionCommitDuration)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	if !ok {
		metrics.TransactionCommitRefusedTotal.Inc()
	} else {
		metrics.OTelTransactionsCommitted.Add(ctx, 1)
	}
	return &CommitTransactionResponse{Committed: ok}, nil
}

func (s *Server) RollbackTransaction(ctx context.Context, req *RollbackTransactionRequest) (*RollbackTransactionResponse, error) {
	ok, err := s.manager.RollbackTransaction(req.TransactionID)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &RollbackTransactionResponse{RolledBack: ok}, nil
}

func (s *Server) GetTransaction(ctx context.Context, req *GetTransactionRequest) (*GetTransactionResponse, error) {
	txn, err := s.manager.GetTransaction(req.TransactionID)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &GetTransactionResponse{Transaction: txn}, nil
}

func (s *Server) GenerateToken(ctx context.Context, req *GenerateTokenRequest) (*GenerateTokenResponse, error) {
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	tok, err := s.tokens.Generate(req.Permissions, req.Namespace, ttl)
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &GenerateTokenResponse{Token: tok}, nil
}

func (s *Server) RevokeToken(ctx context.Context, req *RevokeTokenRequest) (*RevokeTokenResponse, error) {
	s.tokens.Revoke(req.TokenID)
	return &RevokeTokenResponse{Revoked: true}, nil
}

// Statistics serves engine-wide aggregate counters; it is
// intentionally left open to unauthenticated local tooling (service.go's
// requiredPermission) the way health and readiness checks are.
func (s *Server) Statistics(ctx context.Context, req *StatisticsRequest) (*StatisticsResponse, error) {
	stats, err := s.manager.Statistics()
	if err != nil {
		return nil, aifserrors.ToStatus(err).Err()
	}
	return &StatisticsResponse{
		Assets:       stats.Assets,
		Namespaces:   stats.Namespaces,
		VectorCount:  stats.VectorCount,
		KMSKeys:      stats.KMSKeys,
		KMSExpired:   stats.KMSExpired,
		Transactions: stats.Transactions,
	}, nil
}

var _ AIFSServer = (*Server)(nil)
