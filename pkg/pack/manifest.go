package pack

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/aethel-dev/aethel/pkg/core"
)

// ManifestFile is the name of the manifest inside a pack directory.
const ManifestFile = "pack.json"

// ProtocolVersion is the manifest protocol implemented by this module.
// A pack is accepted when its protocolVersion shares the major component.
const ProtocolVersion = "0.1.0"

// Manifest is the on-disk description of a pack.
type Manifest struct {
	Name            string     `json:"name" validate:"required,packname"`
	Version         string     `json:"version" validate:"required"`
	ProtocolVersion string     `json:"protocolVersion" validate:"required"`
	Types           []TypeDecl `json:"types" validate:"dive"`
}

// TypeDecl declares one document type of a pack.
type TypeDecl struct {
	ID       string `json:"id" validate:"required"`
	Version  string `json:"version" validate:"required"`
	Schema   string `json:"schema" validate:"required"`
	Template string `json:"template,omitempty"`
}

var packNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// manifestValidate is the validator instance for manifests.
// Initialized in init() with custom validators.
var manifestValidate *validator.Validate

func init() {
	manifestValidate = validator.New()
	_ = manifestValidate.RegisterValidation("packname", validatePackName)
}

// validatePackName accepts DNS-label style names: lowercase letters, digits
// and inner hyphens, at most 63 characters.
func validatePackName(fl validator.FieldLevel) bool {
	return ValidName(fl.Field().String())
}

// ValidName reports whether name is an acceptable pack name.
func ValidName(name string) bool {
	return packNamePattern.MatchString(name)
}

func (m *Manifest) validate() error {
	if err := manifestValidate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &core.Error{
				Kind:  core.KindInvalidPackManifest,
				Name:  m.Name,
				Field: fe.Namespace(),
				Msg:   fmt.Sprintf("field %s failed %q validation", fe.Namespace(), fe.Tag()),
			}
		}
		return &core.Error{Kind: core.KindInvalidPackManifest, Name: m.Name, Err: err}
	}

	if err := versionField(m.ProtocolVersion, "protocolVersion"); err != nil {
		return err
	}
	if got, want := core.MajorVersion(m.ProtocolVersion), core.MajorVersion(ProtocolVersion); got != want {
		return &core.Error{
			Kind:     core.KindProtocolVersionMismatch,
			Name:     m.Name,
			Expected: want + ".x.x",
			Got:      m.ProtocolVersion,
		}
	}
	if err := versionField(m.Version, "version"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(m.Types))
	for i, t := range m.Types {
		if core.PackOf(t.ID) != m.Name || len(t.ID) <= len(m.Name)+1 {
			return &core.Error{
				Kind:  core.KindInvalidPackManifest,
				Name:  m.Name,
				Field: fmt.Sprintf("types[%d].id", i),
				Msg:   fmt.Sprintf("type id %q must start with %q", t.ID, m.Name+"."),
			}
		}
		if seen[t.ID] {
			return &core.Error{
				Kind:  core.KindInvalidPackManifest,
				Name:  m.Name,
				Field: fmt.Sprintf("types[%d].id", i),
				Msg:   fmt.Sprintf("duplicate type id %q", t.ID),
			}
		}
		seen[t.ID] = true
		if err := versionField(t.Version, fmt.Sprintf("types[%d].version", i)); err != nil {
			return err
		}
	}
	return nil
}

func versionField(v, field string) error {
	if err := core.ValidateVersion(v); err != nil {
		var e *core.Error
		if errors.As(err, &e) {
			e.Field = field
		}
		return err
	}
	return nil
}
