package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/RichardKnop/liteinspect/internal/sqlitefile"
)

var errEmptyCommand = errors.New("command cannot be empty")

// commandGrammar accepts a dot command or SELECT COUNT(*) FROM <table>.
//
//nolint:govet // participle grammar tags are not standard struct tags
type commandGrammar struct {
	Meta  string        `  @MetaCommand`
	Count *countGrammar `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type countGrammar struct {
	Table tableGrammar `"SELECT" "COUNT" "(" "*" ")" "FROM" @@ ";"?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type tableGrammar struct {
	Quoted   string `  @QuotedIdent`
	Backtick string `| @BacktickIdent`
	Bracket  string `| @BracketIdent`
	Bare     string `| @Ident`
}

var commandLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "MetaCommand", Pattern: `\.[A-Za-z_]+`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"`},
	{Name: "BacktickIdent", Pattern: "`(?:[^`]|``)*`"},
	{Name: "BracketIdent", Pattern: `\[[^\]]*\]`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_$]*`},
	{Name: "Punct", Pattern: `[()*;]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var metaCommands = map[string]sqlitefile.CommandKind{
	".dbinfo": sqlitefile.DBInfo,
	".tables": sqlitefile.ListTables,
}

type parser struct {
	grammar *participle.Parser[commandGrammar]
}

func New() *parser {
	return &parser{
		grammar: participle.MustBuild[commandGrammar](
			participle.Lexer(commandLexer),
			participle.CaseInsensitive("Ident"),
			participle.Elide("Whitespace"),
		),
	}
}

// Parse resolves command text into a Command. Keywords are case
// insensitive, the table name is kept exactly as written.
func (p *parser) Parse(ctx context.Context, text string) (sqlitefile.Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return sqlitefile.Command{}, fmt.Errorf("%w: %w", sqlitefile.ErrUnsupportedCommand, errEmptyCommand)
	}

	parsed, err := p.grammar.ParseString("", text)
	if err != nil {
		return sqlitefile.Command{}, fmt.Errorf("%w: %q: %v", sqlitefile.ErrUnsupportedCommand, text, err)
	}

	if parsed.Count != nil {
		return sqlitefile.Command{
			Kind:      sqlitefile.CountTableRows,
			TableName: parsed.Count.Table.name(),
		}, nil
	}

	kind, ok := metaCommands[parsed.Meta]
	if !ok {
		return sqlitefile.Command{}, fmt.Errorf("%w: %s", sqlitefile.ErrUnsupportedCommand, parsed.Meta)
	}
	return sqlitefile.Command{Kind: kind}, nil
}

func (t tableGrammar) name() string {
	switch {
	case t.Quoted != "":
		return unquote(t.Quoted, `"`)
	case t.Backtick != "":
		return unquote(t.Backtick, "`")
	case t.Bracket != "":
		// [name] has no escape for the closing bracket
		return t.Bracket[1 : len(t.Bracket)-1]
	default:
		return t.Bare
	}
}

// unquote strips the surrounding quotes and collapses doubled ones.
func unquote(quoted, quote string) string {
	return strings.ReplaceAll(quoted[1:len(quoted)-1], quote+quote, quote)
}
