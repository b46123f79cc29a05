package strategy

import "github.com/rafaeljc/mimir/internal/parameter"

// Built-in strategy names.
const (
	NameUserWithID              = "userWithId"
	NameFlexibleRollout         = "flexibleRollout"
	NameGradualRolloutUserID    = "gradualRolloutUserId"
	NameGradualRolloutSessionID = "gradualRolloutSessionId"
	NameGradualRolloutRandom    = "gradualRolloutRandom"
	NameRemoteAddress           = "remoteAddress"
	NameApplicationHostname     = "applicationHostname"
)

// Standard context field names.
const (
	FieldUserID        = "userId"
	FieldSessionID     = "sessionId"
	FieldRemoteAddress = "remoteAddress"
	FieldEnvironment   = "environment"
	FieldAppName       = "appName"
	FieldCurrentTime   = "currentTime"
)

// Stickiness values that do not name a context field.
const (
	StickinessDefault = "default"
	StickinessRandom  = "random"
)

// Builtins returns the built-in strategy definitions in catalogue order.
// A fresh slice is returned on every call.
func Builtins() []Definition {
	return []Definition{
		{
			Name:        DefaultName,
			DisplayName: "Standard",
			Description: "The standard strategy is strictly on / off for your entire userbase.",
			Parameters:  []ParameterDefinition{},
		},
		{
			Name:        NameUserWithID,
			DisplayName: "UserIDs",
			Description: "Enable the feature for a specific set of userIds.",
			Parameters: []ParameterDefinition{
				{Name: "userIds", Type: parameter.TypeList, Description: "", Required: false},
			},
		},
		{
			Name:        NameFlexibleRollout,
			DisplayName: "Gradual rollout",
			Description: "Roll out to a percentage of your userbase, and ensure that the experience is the same for the user on each visit.",
			Parameters: []ParameterDefinition{
				{Name: "rollout", Type: parameter.TypePercentage, Description: "", Required: false},
				{Name: "stickiness", Type: parameter.TypeString, Description: "Used define stickiness. Possible values: default, userId, sessionId, random", Required: true},
				{Name: "groupId", Type: parameter.TypeString, Description: "Used to define a activation groups, which allows you to correlate across feature toggles.", Required: true},
			},
		},
		{
			Name:        NameGradualRolloutUserID,
			DisplayName: "Gradual rollout with userId",
			Description: "Gradually activate feature toggle for logged in users. Stickiness based on the user ID.",
			Deprecated:  true,
			Parameters: []ParameterDefinition{
				{Name: "percentage", Type: parameter.TypePercentage, Description: "", Required: false},
				{Name: "groupId", Type: parameter.TypeString, Description: "Used to define a activation groups, which allows you to correlate across feature toggles.", Required: true},
			},
		},
		{
			Name:        NameGradualRolloutSessionID,
			DisplayName: "Gradual rollout with sessionId",
			Description: "Gradually activate feature toggle. Stickiness based on session ID.",
			Deprecated:  true,
			Parameters: []ParameterDefinition{
				{Name: "percentage", Type: parameter.TypePercentage, Description: "", Required: false},
				{Name: "groupId", Type: parameter.TypeString, Description: "Used to define a activation groups, which allows you to correlate across feature toggles.", Required: true},
			},
		},
		{
			Name:        NameGradualRolloutRandom,
			DisplayName: "Randomized",
			Description: "Randomly activate the feature toggle. No stickiness.",
			Deprecated:  true,
			Parameters: []ParameterDefinition{
				{Name: "percentage", Type: parameter.TypePercentage, Description: "", Required: false},
			},
		},
		{
			Name:        NameRemoteAddress,
			DisplayName: "IPs",
			Description: "Enable the feature for a specific set of IP addresses.",
			Parameters: []ParameterDefinition{
				{Name: "IPs", Type: parameter.TypeList, Description: "List of IPs to enable the feature toggle for.", Required: true},
			},
		},
		{
			Name:        NameApplicationHostname,
			DisplayName: "Hosts",
			Description: "Enable the feature for a specific set of hostnames.",
			Parameters: []ParameterDefinition{
				{Name: "hostNames", Type: parameter.TypeList, Description: "List of hostnames to enable the feature toggle for.", Required: false},
			},
		},
	}
}

// StandardContextFields returns the context fields every deployment knows.
func StandardContextFields() []ContextField {
	return []ContextField{
		{Name: FieldUserID, Description: "Allows you to constrain on userId", Stickiness: true},
		{Name: FieldSessionID, Description: "Allows you to constrain on sessionId", Stickiness: true},
		{Name: FieldRemoteAddress, Description: "Allows you to constrain on remoteAddress"},
		{Name: FieldEnvironment, Description: "Allows you to constrain on environment"},
		{Name: FieldAppName, Description: "Allows you to constrain on application name"},
		{Name: FieldCurrentTime, Description: "Allows you to constrain on date values"},
	}
}

var (
	builtinNames  = namesOf(Builtins(), func(d Definition) string { return d.Name })
	standardNames = namesOf(StandardContextFields(), func(f ContextField) string { return f.Name })
)

// IsBuiltin reports whether name is a built-in strategy.
func IsBuiltin(name string) bool {
	_, ok := builtinNames[name]
	return ok
}

// IsStandardField reports whether name is a standard context field.
func IsStandardField(name string) bool {
	_, ok := standardNames[name]
	return ok
}

func namesOf[T any](items []T, name func(T) string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[name(it)] = struct{}{}
	}
	return m
}
