package grammar

// Level is one precedence level. Later levels in Directives.Precedence
// bind tighter.
type Level struct {
	Assoc  Assoc
	Tokens []string
}

// RulePrec overrides the precedence of every production of a rule.
type RulePrec struct {
	Prec  int
	Assoc Assoc
}

// Directives carry what EBNF cannot express.
type Directives struct {
	Start string

	// Extras may appear between any two tokens and are attached to the
	// enclosing node. They are terminals that do not occur in the EBNF.
	Extras []string

	// Hidden rules are flattened into their parent node.
	Hidden []string

	// Anonymous terminals are visible in the tree but not named.
	Anonymous []string

	// Invisible terminals never appear as tree nodes.
	Invisible []string

	// Insertable tokens may be inserted as MISSING at end of input.
	Insertable []string

	// Precedence assigns token levels; level i has precedence i+1.
	Precedence []Level

	// Rules overrides the precedence a production takes from its last
	// terminal.
	Rules map[string]RulePrec
}

// YarnDirectives returns the directives for yarn.ebnf.
func YarnDirectives() Directives {
	return Directives{
		Start:  "SourceFile",
		Extras: []string{"comment"},
		Hidden: []string{
			"Statement",
			"HeaderLine",
			"LinePart",
			"CommandPart",
			"JumpTarget",
			"WhenCondition",
		},
		Anonymous:  []string{"newline", "blank_line"},
		Invisible:  []string{"indent", "dedent"},
		Insertable: []string{">>", "}", ")", "newline", "dedent", "==="},
		Precedence: []Level{
			{AssocNone, nil},
			{AssocLeft, []string{"and", "&&", "or", "||", "xor", "^"}},
			{AssocLeft, []string{"==", "!=", "is", "eq", "neq"}},
			{AssocLeft, []string{"<=", ">=", "<", ">", "lte", "gte", "lt", "gt"}},
			{AssocLeft, []string{"+", "-"}},
			{AssocLeft, []string{"*", "/", "%"}},
			{AssocRight, nil},
			{AssocNone, nil},
			{AssocNone, nil},
			{AssocNone, []string{"->", "=>", "indent"}},
		},
		Rules: map[string]RulePrec{
			"UnaryExpression": {7, AssocRight},
			"Option":          {1, AssocNone},
			"OptionGroup":     {1, AssocNone},
			"LineGroupItem":   {1, AssocNone},
			"LineGroup":       {1, AssocNone},
		},
	}
}
