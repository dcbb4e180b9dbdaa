package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// BankPayloadKey returns the cache key for a bank's serialized question payload
func (r *CacheKeyStruct) BankPayloadKey(bankID string) string {
	return fmt.Sprintf("bank:%s:payload", bankID)
}

var CacheKey = NewCacheKeyStruct()
