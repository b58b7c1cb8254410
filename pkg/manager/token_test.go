package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/aifs/pkg/types"
)

func TestTokenGenerateAndVerify(t *testing.T) {
	tm, err := NewTokenManager()
	require.NoError(t, err)

	tok, err := tm.Generate([]types.Permission{types.PermissionGet, types.PermissionPut}, "ns1", time.Hour)
	require.NoError(t, err)

	assert.NoError(t, tm.Verify(tok.TokenID, []types.Permission{types.PermissionGet}, "ns1"))
	assert.NoError(t, tm.Verify(tok.TokenID, []types.Permission{types.PermissionGet, types.PermissionPut}, ""))
}

func TestTokenVerifyRejectsMissingPermission(t *testing.T) {
	tm, err := NewTokenManager()
	require.NoError(t, err)

	tok, err := tm.Generate([]types.Permission{types.PermissionGet}, "", time.Hour)
	require.NoError(t, err)

	err = tm.Verify(tok.TokenID, []types.Permission{types.PermissionDelete}, "")
	assert.Error(t, err)
}

func TestTokenVerifyRejectsNamespaceMismatch(t *testing.T) {
	tm, err := NewTokenManager()
	require.NoError(t, err)

	tok, err := tm.Generate([]types.Permission{types.PermissionGet}, "ns1", time.Hour)
	require.NoError(t, err)

	err = tm.Verify(tok.TokenID, []types.Permission{types.PermissionGet}, "ns2")
	assert.Error(t, err)
}

func TestTokenVerifyRejectsExpired(t *testing.T) {
	tm, err := NewTokenManager()
	require.NoError(t, err)

	tok, err := tm.Generate([]types.Permission{types.PermissionGet}, "", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	err = tm.Verify(tok.TokenID, []types.Permission{types.PermissionGet}, "")
	assert.Error(t, err)
}

func TestTokenVerifyRejectsTamperedSignature(t *testing.T) {
	tm, err := NewTokenManager()
	require.NoError(t, err)

	tok, err := tm.Generate([]types.Permission{types.PermissionGet}, "", time.Hour)
	require.NoError(t, err)

	tok.SignatureHex = "00" + tok.SignatureHex[2:]
	err = tm.Verify(tok.TokenID, []types.Permission{types.PermissionGet}, "")
	assert.Error(t, err)
}

func TestTokenRevoke(t *testing.T) {
	tm, err := NewTokenManager()
	require.NoError(t, err)

	tok, err := tm.Generate([]types.Permission{types.PermissionGet}, "", time.Hour)
	require.NoError(t, err)

	tm.Revoke(tok.TokenID)
	err = tm.Verify(tok.TokenID, []types.Permission{types.PermissionGet}, "")
	assert.Error(t, err)
}
