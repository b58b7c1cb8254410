/*
Package api implements the AIFS RPC server: the external interface named in
spec §6.3 over the asset/snapshot/namespace/branch/tag/transaction
orchestration layer in pkg/manager.

# Architecture

	┌────────────────────── CLIENT (aifsctl / SDK) ──────────────────┐
	│  pkg/client: grpc.NewClient + jsonCodec, "authorization: bearer ..." │
	└──────────────────────────────┬───────────────────────────────-─┘
	                                │ gRPC (default :9090)
	┌───────────────────────────────▼─────────────────────────────────┐
	│  pkg/api.Server                                                 │
	│   - ServiceDesc (service.go): hand-authored grpc.ServiceDesc,   │
	│     the equivalent of a protoc-gen-go-grpc _ServiceDesc         │
	│   - jsonCodec (codec.go): registers "application/grpc+json" so  │
	│     grpc-go's real transport/flow-control/interceptor chain     │
	│     carries plain JSON-tagged structs instead of protobuf       │
	│   - AuthInterceptor (interceptor.go): verifies the bearer       │
	│     capability token (spec §6.5) against the method's required  │
	│     permission                                                  │
	│   - metricsInterceptor: per-method request count + latency      │
	└───────────────────────────────┬─────────────────────────────────┘
	                                │
	┌───────────────────────────────▼─────────────────────────────────┐
	│  pkg/manager.AssetManager + pkg/manager.TokenManager            │
	└───────────────────────────────────────────────────────────────--┘

# Wire format

The RPC surface spec §6.3 names is a contract (method names, request/
response shapes, status codes), not a wire format. No `.proto` schema or
generated `.pb.go` stub backs this surface, so rather than fabricate one
this package hand-authors a grpc.ServiceDesc (service.go) dispatching
through a JSON encoding.Codec (codec.go). This keeps the real
google.golang.org/grpc dependency doing real work — transport, streaming,
flow control, status codes, interceptors — without inventing a protobuf
schema compiler step. See DESIGN.md's Open Question (c) for the full
rationale.

# Method groups

AIFS (asset/snapshot/namespace/branch/tag/transaction operations, plus the
Statistics counters) is the group implemented over gRPC by Server in
server.go. Health (/health, /ready, /live), Introspect (/version), and
Metrics (/metrics, /metrics/otel) are served over plain HTTP by
HealthServer (health.go) with pkg/metrics' handlers rather than gRPC,
matching how narrowly-scoped sidecar surfaces are usually exposed alongside
a primary RPC service. No Admin or Format surface is served.

# Authorization

Every AIFS method except Statistics requires a bearer capability token in
the "authorization" gRPC metadata key (spec §6.5); AuthInterceptor resolves
the method's required permission via requiredPermission (service.go) and
verifies it against the token through the TokenManager passed to NewServer.
A missing or invalid token surfaces as Unauthenticated; an insufficient
scope surfaces as PermissionDenied.

# Error handling

Every manager error is an *aifserrors.Error; Server converts it to a gRPC
status with aifserrors.ToStatus before returning, so RPC clients see the
status codes named in spec §7 directly.
*/
package api
