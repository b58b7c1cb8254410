/*
Package security implements AIFS's cryptographic primitives: envelope
encryption of chunk data keys (KMS) and Ed25519 signing of snapshots and
namespace identities.

# KMS and envelope encryption

Each stored chunk is protected by a fresh 256-bit data key, itself
AES-256-GCM-encrypted under the material of the KMS key named by a KMS key
ID (see kms.go, envelope.go). KMS key records are persisted unencrypted. The on-disk chunk layout is:

	header := kms_key_id_len(u16) | kms_key_id | wrap_nonce(12B) | wrapped_data_key_len(u16) | wrapped_data_key
	body   := data_nonce(12B) | ciphertext_and_tag
	file   := magic("AIFS") | version(1) | header | body

KMS keys may expire; GetKey/ListKeys lazily purge expired records rather
than running a background sweep.

# Ed25519 signing

crypto.go implements snapshot signing (sign_snapshot/verify_snapshot, over
the canonical message merkle_root:created_at:namespace), a per-namespace
signing key registry, and a pinned trusted-key registry for externally
issued public keys — the latter two following the same
mutex-guarded-struct-with-store-backed-persistence shape used throughout
this package.

No certificate authority or TLS machinery lives here: AIFS's trust model is
bare Ed25519 key pairs per namespace, not x509 chains.
*/
package security
