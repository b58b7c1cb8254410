package api

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName is the RPC path prefix a generated client/server would use
// had this surface come from a .proto file: "/aifs.AIFS/<Method>".
const serviceName = "aifs.AIFS"

// AIFSServer is the RPC surface spec §6.3 names for the AIFS service group:
// asset, snapshot, namespace, branch, tag, transaction, and admin
// operations. Server implements this interface.
type AIFSServer interface {
	PutAsset(context.Context, *PutAssetRequest) (*PutAssetResponse, error)
	GetAsset(context.Context, *GetAssetRequest) (*GetAssetResponse, error)
	DeleteAsset(context.Context, *DeleteAssetRequest) (*DeleteAssetResponse, error)
	VectorSearch(context.Context, *VectorSearchRequest) (*VectorSearchResponse, error)

	CreateSnapshot(context.Context, *CreateSnapshotRequest) (*CreateSnapshotResponse, error)
	GetSnapshot(context.Context, *GetSnapshotRequest) (*GetSnapshotResponse, error)
	VerifySnapshot(context.Context, *VerifySnapshotRequest) (*VerifySnapshotResponse, error)
	ListVerifiedSnapshots(context.Context, *ListVerifiedSnapshotsRequest) (*ListVerifiedSnapshotsResponse, error)

	CreateNamespace(context.Context, *CreateNamespaceRequest) (*CreateNamespaceResponse, error)
	GetNamespace(context.Context, *GetNamespaceRequest) (*GetNamespaceResponse, error)
	ListNamespaces(context.Context, *ListNamespacesRequest) (*ListNamespacesResponse, error)
	DeleteNamespace(context.Context, *DeleteNamespaceRequest) (*DeleteNamespaceResponse, error)

	UpdateBranch(context.Context, *UpdateBranchRequest) (*UpdateBranchResponse, error)
	GetBranch(context.Context, *GetBranchRequest) (*GetBranchResponse, error)
	ListBranches(context.Context, *ListBranchesRequest) (*ListBranchesResponse, error)
	BranchHistory(context.Context, *BranchHistoryRequest) (*BranchHistoryResponse, error)
	DeleteBranch(context.Context, *DeleteBranchRequest) (*DeleteBranchResponse, error)

	CreateTag(context.Context, *CreateTagRequest) (*CreateTagResponse, error)
	GetTag(context.Context, *GetTagRequest) (*GetTagResponse, error)
	ListTags(context.Context, *ListTagsRequest) (*ListTagsResponse, error)
	DeleteTag(context.Context, *DeleteTagRequest) (*DeleteTagResponse, error)

	BeginTransaction(context.Context, *BeginTransactionRequest) (*BeginTransactionResponse, error)
	CommitTransaction(context.Context, *CommitTransactionRequest) (*CommitTransactionResponse, error)
	RollbackTransaction(context.Context, *RollbackTransactionRequest) (*RollbackTransactionResponse, error)
	GetTransaction(context.Context, *GetTransactionRequest) (*GetTransactionResponse, error)

	GenerateToken(context.Context, *GenerateTokenRequest) (*GenerateTokenResponse, error)
	RevokeToken(context.Context, *RevokeTokenRequest) (*RevokeTokenResponse, error)

	Statistics(context.Context, *StatisticsRequest) (*StatisticsResponse, error)
}

// methodDesc builds a grpc.MethodDesc for a unary RPC, mirroring the shape
// protoc-gen-go-grpc emits: decode the request, run it through any
// interceptor, and dispatch to the matching AIFSServer method.
func methodDesc[Req any, Resp any](name string, call func(AIFSServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AIFSServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(AIFSServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is the hand-authored equivalent of a protoc-gen-go-grpc
// _ServiceDesc var: it lets grpc.Server dispatch incoming calls without any
// generated stub package (see doc.go's "Wire format" section for why).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AIFSServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("PutAsset", AIFSServer.PutAsset),
		methodDesc("GetAsset", AIFSServer.GetAsset),
		methodDesc("DeleteAsset", AIFSServer.DeleteAsset),
		methodDesc("VectorSearch", AIFSServer.VectorSearch),
		methodDesc("CreateSnapshot", AIFSServer.CreateSnapshot),
		methodDesc("GetSnapshot", AIFSServer.GetSnapshot),
		methodDesc("VerifySnapshot", AIFSServer.VerifySnapshot),
		methodDesc("ListVerifiedSnapshots", AIFSServer.ListVerifiedSnapshots),
		methodDesc("CreateNamespace", AIFSServer.CreateNamespace),
		methodDesc("GetNamespace", AIFSServer.GetNamespace),
		methodDesc("ListNamespaces", AIFSServer.ListNamespaces),
		methodDesc("DeleteNamespace", AIFSServer.DeleteNamespace),
		methodDesc("UpdateBranch", AIFSServer.UpdateBranch),
		methodDesc("GetBranch", AIFSServer.GetBranch),
		methodDesc("ListBranches", AIFSServer.ListBranches),
		methodDesc("BranchHistory", AIFSServer.BranchHistory),
		methodDesc("DeleteBranch", AIFSServer.DeleteBranch),
		methodDesc("CreateTag", AIFSServer.CreateTag),
		methodDesc("GetTag", AIFSServer.GetTag),
		methodDesc("ListTags", AIFSServer.ListTags),
		methodDesc("DeleteTag", AIFSServer.DeleteTag),
		methodDesc("BeginTransaction", AIFSServer.BeginTransaction),
		methodDesc("CommitTransaction", AIFSServer.CommitTransaction),
		methodDesc("RollbackTransaction", AIFSServer.RollbackTransaction),
		methodDesc("GetTransaction", AIFSServer.GetTransaction),
		methodDesc("GenerateToken", AIFSServer.GenerateToken),
		methodDesc("RevokeToken", AIFSServer.RevokeToken),
		methodDesc("Statistics", AIFSServer.Statistics),
	},
	Metadata: "aifs.proto",
}

// requiredPermission returns the capability spec §6.5 requires for method
// (the last path segment of a full gRPC method string), and whether the
// method requires authorization at all — Statistics and health/introspect
// calls are intentionally left to unauthenticated local tooling.
func requiredPermission(method string) (permission string, needsAuth bool) {
	switch method {
	case "PutAsset":
		return "put", true
	case "GetAsset":
		return "get", true
	case "DeleteAsset":
		return "delete", true
	case "VectorSearch":
		return "search", true
	case "CreateSnapshot":
		return "snapshot", true
	case "GetSnapshot", "VerifySnapshot", "ListVerifiedSnapshots":
		return "get", true
	case "CreateNamespace", "DeleteNamespace":
		return "admin", true
	case "GetNamespace", "ListNamespaces":
		return "list", true
	case "UpdateBranch", "DeleteBranch":
		return "put", true
	case "GetBranch", "ListBranches", "BranchHistory":
		return "list", true
	case "CreateTag":
		return "put", true
	case "DeleteTag":
		return "admin", true
	case "GetTag", "ListTags":
		return "list", true
	case "BeginTransaction", "CommitTransaction", "RollbackTransaction", "GetTransaction":
		return "put", true
	case "GenerateToken", "RevokeToken":
		return "admin", true
	default:
		return "", false
	}
}
