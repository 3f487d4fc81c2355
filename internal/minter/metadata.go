package minter

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/pkg/common/constant"
)

// CIP25Asset is the per-asset entry under label 721. Booleans and numbers are
// written as strings since label 721 consumers expect text for them.
func CIP25Asset(m identity.Metadata, mediaType string) map[string]any {
	attributes := lo.Map(m.Attributes, func(a identity.Attribute, _ int) any {
		return map[string]any{"trait_type": a.TraitType, "value": a.Value}
	})
	authorized := lo.Map(m.AuthorizedAddresses, func(a string, _ int) any { return a })

	return map[string]any{
		"name":        m.Name,
		"image":       m.Image,
		"description": m.Description,
		"mediaType":   mediaType,
		"attributes":  attributes,
		"properties": map[string]any{
			"privacy":             string(m.Privacy),
			"encrypted":           strconv.FormatBool(m.Encrypted),
			"authorizedAddresses": authorized,
			"timestamp":           strconv.FormatInt(m.Timestamp, 10),
			"version":             m.Version,
		},
	}
}

// CIP25Metadata nests the asset entry as policyId -> assetName under label 721.
func CIP25Metadata(policyID, assetName string, m identity.Metadata, mediaType string) ledger.Metadata {
	return ledger.Metadata{
		constant.NFTMetadataLabel: map[string]any{
			policyID: map[string]any{
				assetName: CIP25Asset(m, mediaType),
			},
		},
	}
}
