package schemas

// ConditionalAccessPolicy mirrors the structure returned by the directory
// service for a single conditional access policy. Only the portions the
// collector and graph builder consume are modeled; the raw payload is kept on
// the policy node properties for detail views.
type ConditionalAccessPolicy struct {
	ID               string           `json:"id"`
	DisplayName      string           `json:"displayName"`
	State            string           `json:"state"`
	CreatedDateTime  string           `json:"createdDateTime,omitempty"`
	ModifiedDateTime string           `json:"modifiedDateTime,omitempty"`
	Conditions       Conditions       `json:"conditions"`
	GrantControls    *GrantControls   `json:"grantControls,omitempty"`
	SessionControls  *SessionControls `json:"sessionControls,omitempty"`
}

// Conditions groups every assignment and signal condition of a policy.
type Conditions struct {
	Users               UsersCondition        `json:"users"`
	Applications        ApplicationsCondition `json:"applications"`
	Locations           *LocationsCondition   `json:"locations,omitempty"`
	Platforms           *PlatformsCondition   `json:"platforms,omitempty"`
	ClientAppTypes      []string              `json:"clientAppTypes,omitempty"`
	SignInRiskLevels    []string              `json:"signInRiskLevels,omitempty"`
	UserRiskLevels      []string              `json:"userRiskLevels,omitempty"`
	InsiderRiskLevels   string                `json:"insiderRiskLevels,omitempty"`
	AuthenticationFlows *AuthenticationFlows  `json:"authenticationFlows,omitempty"`
	Devices             *DevicesCondition     `json:"devices,omitempty"`
}

// UsersCondition lists the identity assignments of a policy. Values are either
// object ids or symbolic keywords ("All", "None", "GuestsOrExternalUsers").
type UsersCondition struct {
	IncludeUsers                 []string               `json:"includeUsers,omitempty"`
	ExcludeUsers                 []string               `json:"excludeUsers,omitempty"`
	IncludeGroups                []string               `json:"includeGroups,omitempty"`
	ExcludeGroups                []string               `json:"excludeGroups,omitempty"`
	IncludeRoles                 []string               `json:"includeRoles,omitempty"`
	ExcludeRoles                 []string               `json:"excludeRoles,omitempty"`
	IncludeGuestsOrExternalUsers *GuestsOrExternalUsers `json:"includeGuestsOrExternalUsers,omitempty"`
	ExcludeGuestsOrExternalUsers *GuestsOrExternalUsers `json:"excludeGuestsOrExternalUsers,omitempty"`
}

// GuestsOrExternalUsers scopes a policy to external identity classes,
// optionally narrowed to specific external tenants.
type GuestsOrExternalUsers struct {
	GuestOrExternalUserTypes string           `json:"guestOrExternalUserTypes"`
	ExternalTenants          *ExternalTenants `json:"externalTenants,omitempty"`
}

// ExternalTenants names the tenants an external-user condition applies to.
type ExternalTenants struct {
	MembershipKind string   `json:"membershipKind"`
	Members        []string `json:"members,omitempty"`
}

// ApplicationsCondition lists application assignments and authentication
// context class references.
type ApplicationsCondition struct {
	IncludeApplications []string `json:"includeApplications,omitempty"`
	ExcludeApplications []string `json:"excludeApplications,omitempty"`
	IncludeUserActions  []string `json:"includeUserActions,omitempty"`

	IncludeAuthenticationContextClassReferences []string `json:"includeAuthenticationContextClassReferences,omitempty"`
	ExcludeAuthenticationContextClassReferences []string `json:"excludeAuthenticationContextClassReferences,omitempty"`

	ApplicationFilter *ConditionFilter `json:"applicationFilter,omitempty"`
}

// LocationsCondition lists named location assignments. Values are location ids
// or the keywords "All" / "AllTrusted".
type LocationsCondition struct {
	IncludeLocations []string `json:"includeLocations,omitempty"`
	ExcludeLocations []string `json:"excludeLocations,omitempty"`
}

// PlatformsCondition lists device platform assignments.
type PlatformsCondition struct {
	IncludePlatforms []string `json:"includePlatforms,omitempty"`
	ExcludePlatforms []string `json:"excludePlatforms,omitempty"`
}

// AuthenticationFlows captures the transfer methods condition.
type AuthenticationFlows struct {
	TransferMethods string `json:"transferMethods"`
}

// DevicesCondition carries the device filter rule, when configured.
type DevicesCondition struct {
	DeviceFilter *ConditionFilter `json:"deviceFilter,omitempty"`
}

// ConditionFilter is a mode ("include"/"exclude") plus an OData filter rule.
type ConditionFilter struct {
	Mode string `json:"mode"`
	Rule string `json:"rule"`
}

// GrantControls describes the access controls a policy enforces.
type GrantControls struct {
	Operator                    string                  `json:"operator"`
	BuiltInControls             []string                `json:"builtInControls,omitempty"`
	CustomAuthenticationFactors []string                `json:"customAuthenticationFactors,omitempty"`
	TermsOfUse                  []string                `json:"termsOfUse,omitempty"`
	AuthenticationStrength      *AuthenticationStrength `json:"authenticationStrength,omitempty"`
}

// AuthenticationStrength is a named authentication strength requirement.
type AuthenticationStrength struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// SessionControls describes the session controls a policy applies.
type SessionControls struct {
	SignInFrequency                 *SignInFrequency `json:"signInFrequency,omitempty"`
	PersistentBrowser               *ModeControl     `json:"persistentBrowser,omitempty"`
	CloudAppSecurity                *ModeControl     `json:"cloudAppSecurity,omitempty"`
	ApplicationEnforcedRestrictions *ToggleControl   `json:"applicationEnforcedRestrictions,omitempty"`
	DisableResilienceDefaults       bool             `json:"disableResilienceDefaults,omitempty"`
}

// SignInFrequency forces reauthentication at an interval.
type SignInFrequency struct {
	IsEnabled bool   `json:"isEnabled"`
	Type      string `json:"type,omitempty"`
	Value     int    `json:"value,omitempty"`
}

// ModeControl is a session control with an enabled flag and a mode string.
type ModeControl struct {
	IsEnabled bool   `json:"isEnabled"`
	Mode      string `json:"mode,omitempty"`
}

// ToggleControl is a session control with only an enabled flag.
type ToggleControl struct {
	IsEnabled bool `json:"isEnabled"`
}
