package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyTree(t *testing.T) {
	tree := New(nil)
	assert.Equal(t, EmptyRootHash(), tree.RootHash())
}

func TestSingleMember(t *testing.T) {
	tree := New([]string{"a"})
	assert.Equal(t, "a", tree.RootHash())
}

func TestRootIsDeterministicRegardlessOfOrder(t *testing.T) {
	t1 := New([]string{"c", "a", "b"})
	t2 := New([]string{"b", "c", "a"})
	assert.Equal(t, t1.RootHash(), t2.RootHash())
}

func TestOddMemberCountDuplicatesLast(t *testing.T) {
	tree := New([]string{"a", "b", "c"})
	assert.NotEmpty(t, tree.RootHash())
	assert.Len(t, tree.Members(), 3)
	assert.Equal(t, hashPair(hashPair("a", "b"), hashPair("c", "c")), tree.RootHash())
}

func TestProofRoundTrip(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	tree := New(ids)
	for _, id := range ids {
		proof := tree.Proof(id)
		assert.True(t, VerifyProof(id, proof, tree.RootHash()), "proof for %s should verify", id)
	}
}

func TestProofFailsForNonMember(t *testing.T) {
	tree := New([]string{"a", "b", "c"})
	assert.Nil(t, tree.Proof("z"))
}

func TestProofRejectsTamperedRoot(t *testing.T) {
	tree := New([]string{"a", "b", "c", "d"})
	proof := tree.Proof("a")
	assert.False(t, VerifyProof("a", proof, "not-the-root"))
}
