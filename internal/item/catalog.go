// Package item is the catalog boundary of the storage engine: item
// definitions loaded from JSON config, a registry resolving type IDs,
// and the codecs the persistence surfaces consume. The engine itself
// treats items as opaque beyond quantity, per-stack ceiling and the
// compatibility predicate.
package item

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/osse101/stockpile/internal/domain"
)

// Def is a single item definition in the JSON config.
type Def struct {
	ID           int                 `json:"item_id" validate:"required,gt=0"`
	InternalName string              `json:"internal_name" validate:"required"`
	DisplayName  string              `json:"display_name"`
	Description  string              `json:"description"`
	MaxStack     int                 `json:"max_stack" validate:"gte=0"`
	Quality      domain.QualityLevel `json:"quality,omitempty"`
	Tags         []string            `json:"tags,omitempty"`
}

// Config is the JSON configuration for the item catalog.
type Config struct {
	Version     string `json:"version" validate:"required"`
	Description string `json:"description"`
	Items       []Def  `json:"items" validate:"required,min=1,dive"`
}

// Loader handles loading and validating item configuration.
type Loader interface {
	Load(path string) (*Config, error)
	Validate(config *Config) error
}

type itemLoader struct {
	validate *validator.Validate
}

// NewLoader creates a new Loader instance.
func NewLoader() Loader {
	return &itemLoader{validate: validator.New()}
}

// Load reads and parses an items JSON file.
func (l *itemLoader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgReadConfigFailed, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(ErrMsgParseConfigFailed, err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the item configuration for errors beyond struct tags:
// duplicate IDs and duplicate internal names.
func (l *itemLoader) Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", domain.ErrInvalidItemConfig)
	}
	if err := l.validate.Struct(config); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidItemConfig, err)
	}

	seenIDs := make(map[int]bool, len(config.Items))
	seenNames := make(map[string]bool, len(config.Items))
	for i := range config.Items {
		def := &config.Items[i]
		if seenIDs[def.ID] {
			return fmt.Errorf("%w: item_id %d", domain.ErrDuplicateItem, def.ID)
		}
		seenIDs[def.ID] = true

		if seenNames[def.InternalName] {
			return fmt.Errorf("%w: %q", domain.ErrDuplicateItem, def.InternalName)
		}
		seenNames[def.InternalName] = true

		if def.DisplayName == "" {
			def.DisplayName = displayFallback(def.InternalName)
		}
		if def.Quality == "" {
			def.Quality = domain.QualityCommon
		}
	}
	return nil
}

// displayFallback derives a display name from the internal name, e.g.
// "iron_ingot" -> "Iron Ingot".
func displayFallback(internalName string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(internalName, "_", " "))
}

// Registry resolves item definitions by type ID or internal name and
// spawns stacks from them.
type Registry struct {
	byID   map[int]Def
	byName map[string]Def
}

// NewRegistry builds a registry from a validated config.
func NewRegistry(config *Config) (*Registry, error) {
	if config == nil || len(config.Items) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", domain.ErrInvalidItemConfig)
	}
	r := &Registry{
		byID:   make(map[int]Def, len(config.Items)),
		byName: make(map[string]Def, len(config.Items)),
	}
	for _, def := range config.Items {
		r.byID[def.ID] = def
		r.byName[def.InternalName] = def
	}
	return r, nil
}

// Lookup returns the definition for a type ID.
func (r *Registry) Lookup(typeID int) (Def, error) {
	def, ok := r.byID[typeID]
	if !ok {
		return Def{}, fmt.Errorf("%w: type id %d", domain.ErrItemNotFound, typeID)
	}
	return def, nil
}

// LookupName returns the definition for an internal name.
func (r *Registry) LookupName(internalName string) (Def, error) {
	def, ok := r.byName[internalName]
	if !ok {
		return Def{}, fmt.Errorf("%w: %q", domain.ErrItemNotFound, internalName)
	}
	return def, nil
}

// Spawn creates a stack of quantity units of the named item.
func (r *Registry) Spawn(internalName string, quantity int) (domain.Item, error) {
	def, err := r.LookupName(internalName)
	if err != nil {
		return domain.Air(), err
	}
	if quantity <= 0 {
		return domain.Air(), nil
	}
	return domain.Item{
		TypeID:   def.ID,
		Quantity: quantity,
		MaxStack: def.MaxStack,
		Quality:  def.Quality,
	}, nil
}
