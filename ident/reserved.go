package ident

// Keywords of the structure declaration language and the alternate
// identifiers used in their place.
var declarationReserved = map[string]string{
	"abstract":      "abstract_",
	"and":           "and_",
	"as":            "as_",
	"assert":        "assert_",
	"block":         "block_",
	"break":         "break_",
	"case":          "case_",
	"catch":         "catch_",
	"class":         "clazz",
	"construct":     "construct_",
	"continue":      "continue_",
	"default":       "default_",
	"delegate":      "delegate_",
	"do":            "do_",
	"else":          "else_",
	"enhancement":   "enhancement_",
	"enum":          "enum_",
	"eval":          "eval_",
	"extends":       "extends_",
	"false":         "false_",
	"final":         "final_",
	"finally":       "finally_",
	"for":           "for_",
	"function":      "function_",
	"get":           "get_",
	"if":            "if_",
	"implements":    "implements_",
	"in":            "in_",
	"index":         "index_",
	"interface":     "interface_",
	"internal":      "internal_",
	"iterator":      "iterator_",
	"new":           "new_",
	"not":           "not_",
	"null":          "null_",
	"or":            "or_",
	"outer":         "outer_",
	"override":      "override_",
	"package":       "package_",
	"private":       "private_",
	"property":      "property_",
	"protected":     "protected_",
	"public":        "public_",
	"readonly":      "readonly_",
	"represents":    "represents_",
	"return":        "return_",
	"set":           "set_",
	"static":        "static_",
	"statictypeof":  "statictypeof_",
	"structure":     "structure_",
	"super":         "super_",
	"switch":        "switch_",
	"this":          "this_",
	"throw":         "throw_",
	"transient":     "transient_",
	"true":          "true_",
	"try":           "try_",
	"typeas":        "typeas_",
	"typeis":        "typeis_",
	"typeof":        "typeof_",
	"using":         "using_",
	"uses":          "uses_",
	"var":           "var_",
	"void":          "void_",
	"while":         "while_",
}
