/*
Package types defines the core data structures of the AIFS storage engine.

It has no behavior of its own; every other package imports it to exchange
Asset, LineageEdge, EmbeddingVector, Snapshot, Namespace, Branch, Tag,
Transaction, KMSKey, and CapabilityToken values without depending on each
other's internal representations.

# Core Types

  - Asset: an immutable, content-addressed payload plus a typed kind.
  - LineageEdge: a directed child->parent derivation edge.
  - EmbeddingVector: a fixed-dimension vector tied to one asset.
  - Snapshot: a signed, immutable Merkle root over a member asset set.
  - Namespace / Branch / Tag: the naming layer built on top of snapshots.
  - Transaction: the unit of atomic visibility (see pkg/storage, pkg/manager).
  - KMSKey / CapabilityToken: security primitives.

# Integration Points

This package integrates with:

  - pkg/storage: persists all types to bbolt.
  - pkg/manager: orchestrates asset/snapshot/transaction lifecycle.
  - pkg/manager's TokenManager: issues CapabilityToken values
    (pkg/security keeps its own KMS key record type rather than KMSKey).
  - pkg/api: serializes these types across the RPC boundary.
*/
package types
