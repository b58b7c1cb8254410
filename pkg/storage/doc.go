/*
Package storage provides bbolt-backed metadata persistence for AIFS.

It holds everything about an asset other than its bytes: the asset index,
lineage edges, namespaces and their branches/tags, snapshots, and the
transaction log used for the strong-causality write path. Chunk bytes
themselves live in pkg/chunkstore, addressed by BLAKE3 hash.

One bucket per entity, one JSON-encoded value per key. Composite keys
(namespace:name) are used for entities scoped under a namespace; lookups
that aren't by primary key (lineage by parent/child, branches/tags/
snapshots by namespace) fall back to a full bucket scan rather than
introducing secondary indexes bbolt doesn't give you for free.
*/
package storage
