/*
Package client provides a Go client library for the AIFS RPC server
(pkg/api).

The client package wraps the jsonCodec gRPC surface (pkg/api's ServiceDesc)
with a convenient, idiomatic Go interface: one method per AIFS RPC, bearer
capability-token attachment, bounded-timeout contexts.

# Architecture

	┌──────────────────── APPLICATION CODE ──────────────────────┐
	│                                                              │
	│  import "github.com/cuemby/aifs/pkg/client"                 │
	│                                                              │
	│  c, err := client.NewClient("localhost:9090",                │
	│      client.WithToken(tokenID))                              │
	│  assetID, err := c.PutAsset(ctx, &api.PutAssetRequest{...})  │
	│                                                              │
	└──────────────────┬───────────────────────────────────────┘
	                   │
	┌──────────────────▼──── pkg/client ─────────────────────────┐
	│  Client: one method per RPC, wraps conn.Invoke against the  │
	│  "/aifs.AIFS/<Method>" paths pkg/api.ServiceDesc registers  │
	└──────────────────┬───────────────────────────────────────┘
	                   │ gRPC + jsonCodec content-subtype
	                   ▼
	              pkg/api.Server

# Authorization

WithToken attaches a bearer capability token (spec §6.5) to every call's
"authorization" gRPC metadata; the server's AuthInterceptor verifies it
against the method's required permission.

# Wire format

Requests and responses are the plain JSON-tagged structs in pkg/api's
messages.go, carried by the "application/grpc+json" content-subtype rather
than protobuf — see pkg/api/doc.go for why no .proto schema exists for this
surface.
*/
package client
