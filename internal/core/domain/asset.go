package domain

import "strings"

type Asset struct {
	Name     string
	Symbol   string
	Address  string
	ListedAt int64
}

func NewAsset(name, symbol, address string, listedAt int64) (*Asset, error) {
	if !IsValidAddress(address) {
		return nil, ErrInvalidAddress
	}
	return &Asset{
		Name:     name,
		Symbol:   symbol,
		Address:  address,
		ListedAt: listedAt,
	}, nil
}

type Chain struct {
	Name    string
	Id      uint64
	AddedAt int64
}

func NewChain(name string, id uint64, addedAt int64) (*Chain, error) {
	if id == 0 {
		return nil, ErrInvalidChainId
	}
	return &Chain{
		Name:    name,
		Id:      id,
		AddedAt: addedAt,
	}, nil
}

// IsValidAddress only rejects the zero address, ie. an empty or blank string.
// Address formats are chain specific and not known to the relay.
func IsValidAddress(address string) bool {
	return len(strings.TrimSpace(address)) > 0
}
