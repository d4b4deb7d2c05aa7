package probe

import "slices"

// Table lists, in priority order, the field and operation names the tracer
// probes on evaluator objects. Earlier names win. Each list can be replaced
// from configuration without touching code.
type Table struct {
	// CandidateFields are metadata fields that may already hold the bound value.
	CandidateFields []string `toml:"candidate_fields"`
	// SlotFields are metadata fields holding a local-variable slot number.
	SlotFields []string `toml:"slot_fields"`
	// SlotReaders read a slot (int argument) from a context or controller.
	SlotReaders []string `toml:"slot_readers"`
	// NameLookups fetch a variable by name from a context-like target.
	NameLookups []string `toml:"name_lookups"`
	// ParameterCollections return name-keyed parameter collections.
	ParameterCollections []string `toml:"parameter_collections"`
	// BindingAccessors return the construct that declared a variable.
	BindingAccessors []string `toml:"binding_accessors"`
	// BindingEvaluators ask a binding for its value.
	BindingEvaluators []string `toml:"binding_evaluators"`
	// DirectEvaluators evaluate the metadata object itself, as a last resort.
	DirectEvaluators []string `toml:"direct_evaluators"`
	// EvaluatorOps drive an evaluator object found on the metadata.
	EvaluatorOps []string `toml:"evaluator_ops"`
	// Unwrappers turn producers (evaluators, expressions, wrappers) into items.
	Unwrappers []string `toml:"unwrappers"`
	// ExpressionEvaluators evaluate objects categorized as expressions.
	ExpressionEvaluators []string `toml:"expression_evaluators"`
	// NameFields and NameAccessors extract a name from a map key or metadata.
	NameFields    []string `toml:"name_fields"`
	NameAccessors []string `toml:"name_accessors"`
	// ContextKeys are property-map keys that may hold the evaluation context.
	ContextKeys []string `toml:"context_keys"`
	// VariableCategories are type-name fragments of variable-like constructs.
	VariableCategories []string `toml:"variable_categories"`
}

// DefaultTable returns the built-in probe lists.
func DefaultTable() Table {
	return Table{
		CandidateFields: []string{"value", "result", "variableValue", "actualValue", "selectValue", "sequence", "selectExpression", "containedValue"},
		SlotFields:      []string{"slot", "slot-number", "slotNumber", "slotIndex"},
		SlotReaders:     []string{"evaluateLocalVariable", "getLocalVariable", "getStackFrameValue"},
		NameLookups: []string{
			"evaluateVariable", "evaluateGlobalVariable", "getVariable", "getGlobalVariable",
			"getGlobalVariableValue", "getXPathVariable", "obtainVariable", "resolveVariable",
			"getParameter", "get",
		},
		ParameterCollections: []string{"getParameters", "getLocalParameters", "getGlobalParameters"},
		BindingAccessors:     []string{"getBinding", "getVariableBinding", "getBindingInformation", "getBindingNode", "getBindingObject"},
		BindingEvaluators:    []string{"evaluate", "evaluateVariable", "evaluateLocalVariable", "getSelectValue", "call", "value"},
		DirectEvaluators:     []string{"iterate", "evaluateVariable", "evaluateLocalVariable", "evaluate", "getSelectValue", "getSelectExpression"},
		EvaluatorOps:         []string{"evaluate", "materialize", "iterate"},
		Unwrappers: []string{
			"materialize", "evaluate", "iterate", "getValue", "value", "call", "apply",
			"asSequence", "asAtomic", "reduce", "expand", "snapshot", "makeSequence",
		},
		ExpressionEvaluators: []string{"evaluateItem", "evaluateVariable", "evaluateLocalVariable", "evaluate", "call", "process", "deliver"},
		NameFields:           []string{"variableQName", "objectName", "name", "qName", "displayName"},
		NameAccessors:        []string{"getVariableQName", "getObjectName", "getVariableName", "getQName", "getDisplayName", "getStructuredQName"},
		ContextKeys:          []string{"context", "xpathContext", "XPathContext", "majorContext", "contextObject"},
		VariableCategories:   []string{"LetExpression", "GlobalVariable", "GlobalParameter", "LocalVariable", "Assignation"},
	}
}

// Merge returns t with every non-empty list of o replacing its counterpart.
func (t Table) Merge(o Table) Table {
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = slices.Clone(src)
		}
	}
	pick(&t.CandidateFields, o.CandidateFields)
	pick(&t.SlotFields, o.SlotFields)
	pick(&t.SlotReaders, o.SlotReaders)
	pick(&t.NameLookups, o.NameLookups)
	pick(&t.ParameterCollections, o.ParameterCollections)
	pick(&t.BindingAccessors, o.BindingAccessors)
	pick(&t.BindingEvaluators, o.BindingEvaluators)
	pick(&t.DirectEvaluators, o.DirectEvaluators)
	pick(&t.EvaluatorOps, o.EvaluatorOps)
	pick(&t.Unwrappers, o.Unwrappers)
	pick(&t.ExpressionEvaluators, o.ExpressionEvaluators)
	pick(&t.NameFields, o.NameFields)
	pick(&t.NameAccessors, o.NameAccessors)
	pick(&t.ContextKeys, o.ContextKeys)
	pick(&t.VariableCategories, o.VariableCategories)
	return t
}
