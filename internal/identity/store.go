package identity

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/pkg/common/constant"
	"github.com/fystack/identity-minter/pkg/infra"
)

var ErrNotFound = errors.New("identity nft not found")

// Store keeps the last minted identity per owner address.
type Store struct {
	kv infra.KVStore
}

func NewStore(kv infra.KVStore) *Store {
	return &Store{kv: kv}
}

func (s *Store) Save(nft NFT) error {
	key, err := ownerKey(nft.Owner)
	if err != nil {
		return err
	}
	if err := s.kv.SetAny(key, nft); err != nil {
		return fmt.Errorf("save identity nft: %w", err)
	}
	return nil
}

func (s *Store) Get(owner string) (*NFT, error) {
	key, err := ownerKey(owner)
	if err != nil {
		return nil, err
	}
	var nft NFT
	found, err := s.kv.GetAny(key, &nft)
	if err != nil {
		return nil, fmt.Errorf("load identity nft: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &nft, nil
}

func (s *Store) Delete(owner string) error {
	key, err := ownerKey(owner)
	if err != nil {
		return err
	}
	return s.kv.Delete(key)
}

// List returns every stored identity, newest first.
func (s *Store) List() ([]NFT, error) {
	pairs, err := s.kv.List(constant.IdentityNFTKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list identity nfts: %w", err)
	}
	out := make([]NFT, 0, len(pairs))
	for _, p := range pairs {
		var nft NFT
		found, err := s.kv.GetAny(p.Key, &nft)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p.Key, err)
		}
		if found {
			out = append(out, nft)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MintedAt.After(out[j].MintedAt) })
	return out, nil
}

// ownerKey normalises the owner to bech32 so hex and bech32 lookups agree.
func ownerKey(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	addr, err := ledger.ParseAddress(owner)
	if err != nil {
		return "", fmt.Errorf("owner address: %w", err)
	}
	return constant.IdentityNFTKeyPrefix + addr.String(), nil
}
