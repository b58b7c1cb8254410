/*
Package manager implements AIFS's asset manager: the orchestration layer
that composes the chunk store, KMS, codecs, Merkle/snapshot subsystem,
vector index, and metadata store into the engine's public operations
(spec §4.10), plus the transaction manager that enforces strong causal
visibility between parent and child assets (spec §4.9).

# Architecture

	┌─────────────────────────── ASSET MANAGER ───────────────────────────┐
	│                                                                      │
	│  ┌────────────────────────────────────────────────────┐            │
	│  │              gRPC + HTTP API surface                │            │
	│  │   AIFS / Health / Introspect / Metrics               │            │
	│  └───────────────────────┬──────────────────────────────┘           │
	│                          │                                          │
	│  ┌───────────────────────▼──────────────────────────────┐          │
	│  │                    AssetManager                       │          │
	│  │  - PutAsset / GetAsset / DeleteAsset / VectorSearch   │          │
	│  │  - CreateSnapshot / VerifySnapshot                    │          │
	│  │  - Branch / Tag CRUD                                  │          │
	│  └───────┬──────────┬──────────┬──────────┬─────────────┘          │
	│          │          │          │          │                         │
	│    ┌─────▼────┐ ┌───▼────┐ ┌───▼─────┐ ┌──▼──────────┐             │
	│    │ TxnManager│ │ KMS +  │ │ chunk   │ │ vectorindex │             │
	│    │ (§4.9)    │ │ crypto │ │ store   │ │             │             │
	│    └─────┬────┘ └───┬────┘ └───┬─────┘ └──┬──────────┘             │
	│          │          │          │          │                         │
	│  ┌───────▼──────────▼──────────▼──────────▼─────────┐              │
	│  │              storage.Store (BoltDB)               │              │
	│  │  assets, lineage, namespaces, snapshots, branches, │              │
	│  │  tags, transactions, asset_visibility              │              │
	│  └─────────────────────────────────────────────────────┘            │
	└──────────────────────────────────────────────────────────────────────┘

# Core components

TxnManager:
  - Implements the PENDING → COMMITTING → COMMITTED state machine
  - Gates commit on every declared parent already being visible
  - Publishes visibility for an entire enrolled set atomically at commit
  - Serializes state transitions behind a single mutex; readers
    never take it, consulting asset_visibility directly

AssetManager:
  - put_asset: codec-validates bytes, writes the chunk (KMS-sealed),
    records metadata and optional lineage/embedding rows, enrolls in a
    transaction (caller-supplied or an implicit auto-transaction)
  - get_asset: in strong-causality mode, invisible assets read as not found
  - delete_asset: refuses when a snapshot references the asset; refuses
    when a visible child exists unless force is set
  - create_snapshot: builds a Merkle tree over the member asset IDs, signs
    it under the namespace's Ed25519 key, persists the snapshot row
  - branch/tag CRUD, with branch updates appending to a history log and
    tags being write-once

TokenManager:
  - Mints and verifies capability tokens (spec §6.5): permission set,
    optional namespace scope, expiry, Ed25519 signature
  - Verification order: lookup → expiry → permission subset → namespace
    match → signature

# Strong causality

The defining invariant (§4.9 Invariant 4): a committed child with a
declared parent dependency is never visible before that parent is. This
holds because Commit refuses to advance past COMMITTING while any
dependency is still invisible, and because an entire transaction's asset
set becomes visible in one atomic store update rather than one row at a
time. Strong causality can be disabled for bulk-load bootstrap, in which
case assets are marked visible immediately on enrollment instead of
waiting for commit.

# Integration points

This package integrates with:

  - pkg/chunkstore: content-addressed byte storage
  - pkg/security: KMS envelope encryption and Ed25519 signing
  - pkg/compression, pkg/codec: asset kind (de)serialization
  - pkg/merkle: snapshot identity and membership proofs
  - pkg/vectorindex: embedding similarity search
  - pkg/storage: durable metadata, transactions, and visibility
  - pkg/api: exposes AssetManager operations over gRPC
*/
package manager
