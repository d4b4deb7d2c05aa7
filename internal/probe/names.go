package probe

// Structural probe names used to navigate between evaluator objects. They
// are fixed; only the per-strategy lists in Table are configurable.
const (
	OpGetController         = "getController"
	OpGetExecutable         = "getExecutable"
	OpGetTopLevelPackage    = "getTopLevelPackage"
	OpGetPackageData        = "getPackageData"
	OpGetBindery            = "getBindery"
	OpGetMajorContext       = "getMajorContext"
	OpGetStackFrame         = "getStackFrame"
	OpGetLocalParameters    = "getLocalParameters"
	OpNewXPathContext       = "newXPathContext"
	OpGetGlobalVariableList = "getGlobalVariableList"
	OpGetGlobalParameters   = "getGlobalParameters"
	OpGetGlobalVariable     = "getGlobalVariable"
	OpGetGlobalVariableVal  = "getGlobalVariableValue"
	OpEvaluateGlobalVar     = "evaluateGlobalVariable"
	OpEvaluateVariable      = "evaluateVariable"
	OpGetBinderySlotNumber  = "getBinderySlotNumber"
	OpGetSlotNumber         = "getSlotNumber"
	OpGetValue              = "getValue"
	OpGetEvaluator          = "getEvaluator"
	OpEvaluateItem          = "evaluateItem"
	OpGetUnderlyingValue    = "getUnderlyingValue"
	OpGetConstructType      = "getConstructType"
	OpGetVariableQName      = "getVariableQName"
	OpGetObjectName         = "getObjectName"
	OpGetVariableName       = "getVariableName"
	OpGet                   = "get"

	FieldEvaluator       = "evaluator"
	FieldBinding         = "binding"
	FieldName            = "name"
	FieldUnderlyingValue = "underlyingValue"
)

// Construct type codes reported through getConstructType.
const (
	ConstructVariable  = 1
	ConstructParam     = 2
	ConstructWithParam = 3
)
