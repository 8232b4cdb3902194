package directory

import (
	"strings"

	"github.com/nullsweep/camap/api/schemas"
)

// rawObject is the typed adapter at the upstream boundary. The directory
// service returns heterogeneous payload shapes with inconsistent key casing;
// everything is normalized into the canonical DirectoryEntity here so the rest
// of the collector never inspects raw shapes.
type rawObject map[string]interface{}

// str returns the string value for a key, matched case-insensitively.
func (o rawObject) str(key string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	for k, v := range o {
		if strings.EqualFold(k, key) {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// classify maps an OData type discriminator to an entity kind. Unrecognized
// or absent discriminators fall back to the hinted kind or unknown, keeping
// the raw type tag for passthrough.
func classify(odataType string, hint schemas.EntityKind) schemas.EntityKind {
	switch {
	case strings.HasSuffix(odataType, ".user"):
		return schemas.KindUser
	case strings.HasSuffix(odataType, ".group"):
		return schemas.KindGroup
	case strings.HasSuffix(odataType, ".servicePrincipal"):
		return schemas.KindServicePrincipal
	case strings.HasSuffix(odataType, ".device"):
		return schemas.KindDevice
	case strings.HasSuffix(odataType, ".directoryRole"),
		strings.HasSuffix(odataType, ".directoryRoleTemplate"):
		return schemas.KindRole
	case strings.HasSuffix(odataType, ".organization"):
		return schemas.KindOrganization
	case strings.Contains(odataType, "NamedLocation"):
		return schemas.KindNamedLocation
	}
	if odataType == "" && hint != "" {
		return hint
	}
	return schemas.KindUnknown
}

// toEntity normalizes one raw payload into the canonical entity record. The
// hint supplies the kind when the payload carries no discriminator (single
// object fetches do not include one).
func toEntity(o rawObject, hint schemas.EntityKind) schemas.DirectoryEntity {
	odataType := o.str("@odata.type")
	kind := classify(odataType, hint)

	e := schemas.DirectoryEntity{
		ID:          o.str("id"),
		DisplayName: o.str("displayName"),
		Kind:        kind,
	}
	if kind == schemas.KindUnknown {
		e.RawType = odataType
	}
	if e.DisplayName == "" {
		if upn := o.str("userPrincipalName"); upn != "" {
			e.DisplayName = upn
		} else {
			e.DisplayName = e.ID
		}
	}

	attrs := map[string]interface{}{}
	for _, key := range []string{"userPrincipalName", "appId", "userType", "roleTemplateId"} {
		if v := o.str(key); v != "" {
			attrs[key] = v
		}
	}
	if len(attrs) > 0 {
		e.Attributes = attrs
	}
	return e
}

// toEntities normalizes a list payload.
func toEntities(objects []rawObject, hint schemas.EntityKind) []schemas.DirectoryEntity {
	out := make([]schemas.DirectoryEntity, 0, len(objects))
	for _, o := range objects {
		out = append(out, toEntity(o, hint))
	}
	return out
}
