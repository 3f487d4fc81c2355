package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fystack/identity-minter/pkg/common/constant"
	"github.com/fystack/identity-minter/pkg/common/enum"
)

const (
	DefaultName        = "Cardano Identity"
	DefaultDescription = "Decentralized Identity on Cardano"

	ipfsScheme = "ipfs://"
)

var (
	ErrInvalidPrivacy = errors.New("privacy must be public, private or selective")
	ErrEmptyCID       = errors.New("image cid is empty")
)

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata is the identity record embedded in the NFT.
type Metadata struct {
	Name                string            `json:"name"`
	Image               string            `json:"image"`
	Description         string            `json:"description,omitempty"`
	Attributes          []Attribute       `json:"attributes,omitempty"`
	Privacy             enum.PrivacyLevel `json:"privacy"`
	Encrypted           bool              `json:"encrypted"`
	AuthorizedAddresses []string          `json:"authorizedAddresses,omitempty"`
	// Unix milliseconds
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

type Options struct {
	Name                string
	Description         string
	Encrypted           bool
	AuthorizedAddresses []string
	Attributes          []Attribute
	// defaults to time.Now
	Now func() time.Time
}

// NewMetadata fills in the defaults for an identity pointing at imageCID.
// Without explicit attributes the privacy level and encryption flag are
// listed as traits.
func NewMetadata(imageCID string, privacy enum.PrivacyLevel, opts Options) (Metadata, error) {
	cid := strings.TrimPrefix(strings.TrimSpace(imageCID), ipfsScheme)
	if cid == "" {
		return Metadata{}, ErrEmptyCID
	}
	if !privacy.Valid() {
		return Metadata{}, fmt.Errorf("%w: %q", ErrInvalidPrivacy, privacy)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	m := Metadata{
		Name:                opts.Name,
		Image:               ipfsScheme + cid,
		Description:         opts.Description,
		Attributes:          opts.Attributes,
		Privacy:             privacy,
		Encrypted:           opts.Encrypted,
		AuthorizedAddresses: opts.AuthorizedAddresses,
		Timestamp:           now().UnixMilli(),
		Version:             constant.DefaultMetadataVersion,
	}
	if m.Name == "" {
		m.Name = DefaultName
	}
	if m.Description == "" {
		m.Description = DefaultDescription
	}
	if len(m.Attributes) == 0 {
		encrypted := "No"
		if opts.Encrypted {
			encrypted = "Yes"
		}
		m.Attributes = []Attribute{
			{TraitType: "Privacy Level", Value: string(privacy)},
			{TraitType: "Encrypted", Value: encrypted},
		}
	}
	return m, nil
}

// CID returns the content id referenced by Image.
func (m Metadata) CID() string {
	return strings.TrimPrefix(m.Image, ipfsScheme)
}
