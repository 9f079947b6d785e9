package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenStore_UnknownKind(t *testing.T) {
	_, err := openStore("mongodb", "whatever")
	assert.Error(t, err)
}

func TestOpenStore_EmptyKindReturnsNil(t *testing.T) {
	store, err := openStore("", "")
	assert.NoError(t, err)
	assert.Nil(t, store)
}

func TestMustExist_MissingFile(t *testing.T) {
	err := mustExist("/no/such/path/gridlex-test.json")
	assert.Error(t, err)
}

func TestMustExist_ExistingFile(t *testing.T) {
	err := mustExist(".")
	assert.NoError(t, err)
}
