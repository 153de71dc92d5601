// Package dump recovers table rows from a MySQL-dialect SQL dump without a
// SQL engine. It understands exactly two statement shapes:
//
//	CREATE TABLE t (col ..., ...)        -- column order only
//	INSERT INTO t [(cols)] VALUES (...), (...);
//
// Everything else is skipped. Malformed rows are dropped with a warning; they
// never abort the parse.
package dump

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gaurav-prasanna/dumppipe/core"
)

var errUnbalanced = errors.New("unbalanced parentheses")

// Dump is the parsed content of one SQL dump.
type Dump struct {
	// Tables in first-seen order. INSERTs into the same table accumulate.
	Tables []*Table
	// Warnings collects dropped rows and skipped statements.
	Warnings []core.Warning

	byName map[string]*Table
	schema map[string][]string // column order from CREATE TABLE
}

// Table holds the rows recovered for one table name.
type Table struct {
	Name string
	Rows []Row
}

// Columns is an ordered column list with O(1) name lookup.
// One Columns value is shared by every row of an INSERT statement.
type Columns struct {
	names []string
	pos   map[string]int
}

// NewColumns builds a Columns from ordered names.
func NewColumns(names []string) *Columns {
	pos := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := pos[n]; !dup {
			pos[n] = i
		}
	}
	return &Columns{names: names, pos: pos}
}

// Names returns the ordered column names.
func (c *Columns) Names() []string { return c.names }

// Row is one decoded INSERT tuple.
type Row struct {
	Line   int // line of the tuple's opening parenthesis
	cols   *Columns
	values []Value
}

// NewRow builds a Row; values must match cols in length.
func NewRow(line int, cols *Columns, values []Value) Row {
	return Row{Line: line, cols: cols, values: values}
}

// Get returns the value for column name, or NULL if the row has no such column.
func (r Row) Get(name string) Value {
	v, _ := r.Lookup(name)
	return v
}

// Lookup returns the value for column name and whether the column exists.
func (r Row) Lookup(name string) (Value, bool) {
	if r.cols == nil {
		return Null(), false
	}
	i, ok := r.cols.pos[name]
	if !ok {
		return Null(), false
	}
	return r.values[i], true
}

// Columns returns the row's ordered column names.
func (r Row) Columns() []string {
	if r.cols == nil {
		return nil
	}
	return r.cols.names
}

// Values returns the row's values in column order.
func (r Row) Values() []Value { return r.values }

// Table returns the table with the given name as it appeared in the dump.
func (d *Dump) Table(name string) (*Table, bool) {
	t, ok := d.byName[name]
	return t, ok
}

func (d *Dump) table(name string) *Table {
	if t, ok := d.byName[name]; ok {
		return t
	}
	t := &Table{Name: name}
	d.byName[name] = t
	d.Tables = append(d.Tables, t)
	return t
}

// ParseReader reads the whole dump from r and parses it. The only error is a
// read failure.
func ParseReader(r io.Reader) (*Dump, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading dump: %w", err)
	}
	return Parse(string(data)), nil
}

// Parse tokenizes and parses dump text.
func Parse(src string) *Dump {
	p := &parser{
		toks: lex(src),
		d: &Dump{
			byName: make(map[string]*Table),
			schema: make(map[string][]string),
		},
	}
	p.run()
	return p.d
}

type parser struct {
	toks []token
	pos  int
	d    *Dump
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) warn(line int, format string, args ...any) {
	p.d.Warnings = append(p.d.Warnings, core.Warning{
		Stage:   core.StageDump,
		Ref:     core.LineRef(line),
		Message: fmt.Sprintf(format, args...),
	})
}

func (t token) isWord(w string) bool {
	return t.kind == tokBare && strings.EqualFold(t.text, w)
}

func (p *parser) run() {
	for {
		t := p.next()
		switch {
		case t.kind == tokEOF:
			return
		case t.kind == tokSemicolon:
			continue
		case t.isWord("INSERT"), t.isWord("REPLACE"):
			p.parseInsert(t)
		case t.isWord("CREATE"):
			p.parseCreate()
		case t.kind == tokError:
			p.warn(t.line, "unterminated string: %s", preview(t.text))
		default:
			p.skipStatement()
		}
	}
}

// skipStatement consumes tokens through the next top-level semicolon.
func (p *parser) skipStatement() {
	for {
		t := p.next()
		switch t.kind {
		case tokSemicolon, tokEOF:
			return
		case tokError:
			p.warn(t.line, "unterminated string: %s", preview(t.text))
			return
		}
	}
}

// parseTableName reads `name`, `db`.`name`, `db`.name, db.`name`, name or
// db.name and returns the unqualified table name.
func (p *parser) parseTableName() (string, bool) {
	t := p.next()
	if t.kind != tokIdent && t.kind != tokBare {
		return "", false
	}
	name := identText(t)
	qualified := t.kind == tokBare && strings.HasSuffix(name, ".")
	if nt := p.peek(); nt.kind == tokBare && strings.HasPrefix(nt.text, ".") {
		p.next()
		if nt.text != "." {
			// `db`.name lexes as the bare run ".name".
			name = nt.text[1:]
			t = nt
			qualified = false
		} else {
			qualified = true
		}
	}
	if qualified {
		t = p.next()
		if t.kind != tokIdent && t.kind != tokBare {
			return "", false
		}
		name = identText(t)
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 && t.kind == tokBare {
		name = name[i+1:]
	}
	return name, name != ""
}

// identText strips identifier quoting.
func identText(t token) string {
	if t.kind != tokIdent {
		return t.text
	}
	s := t.text[1 : len(t.text)-1]
	return strings.ReplaceAll(s, "``", "`")
}

// parseColumnList reads "a, `b`, c)" after the opening parenthesis.
func (p *parser) parseColumnList() ([]string, bool) {
	var cols []string
	for {
		t := p.next()
		if t.kind != tokIdent && t.kind != tokBare {
			return nil, false
		}
		cols = append(cols, identText(t))
		switch p.next().kind {
		case tokComma:
			continue
		case tokRParen:
			return cols, true
		default:
			return nil, false
		}
	}
}

var insertModifiers = []string{"LOW_PRIORITY", "DELAYED", "HIGH_PRIORITY", "IGNORE"}

func (p *parser) isModifier(t token) bool {
	for _, m := range insertModifiers {
		if t.isWord(m) {
			return true
		}
	}
	return false
}

func (p *parser) parseInsert(start token) {
	for p.isModifier(p.peek()) {
		p.next()
	}
	if p.peek().isWord("INTO") {
		p.next()
	}

	name, ok := p.parseTableName()
	if !ok {
		p.warn(start.line, "INSERT without a table name; statement skipped")
		p.skipStatement()
		return
	}

	var cols []string
	if p.peek().kind == tokLParen {
		p.next()
		if cols, ok = p.parseColumnList(); !ok {
			p.warn(start.line, "malformed column list for table %s; statement skipped", name)
			p.skipStatement()
			return
		}
	}

	kw := p.next()
	if !kw.isWord("VALUES") && !kw.isWord("VALUE") {
		p.warn(kw.line, "unsupported INSERT form for table %s; statement skipped", name)
		if kw.kind != tokSemicolon && kw.kind != tokEOF {
			p.skipStatement()
		}
		return
	}

	if cols == nil {
		cols = p.d.schema[name]
		if len(cols) == 0 {
			p.warn(start.line, "no column list known for table %s; statement skipped", name)
			p.skipStatement()
			return
		}
	}

	columns := NewColumns(cols)
	table := p.d.table(name)

	for {
		open := p.next()
		switch {
		case open.kind == tokSemicolon || open.kind == tokEOF:
			return
		case open.kind != tokLParen:
			p.warn(open.line, "expected tuple in INSERT into %s; statement skipped", name)
			p.skipStatement()
			return
		}

		fields, stop, err := p.parseTuple()
		if err == nil {
			if row, rowErr := decodeRow(open.line, columns, fields); rowErr != nil {
				p.warn(open.line, "row dropped from %s: %v", name, rowErr)
			} else {
				table.Rows = append(table.Rows, row)
			}
		} else {
			p.warn(open.line, "row dropped from %s: %v", name, err)
		}
		if stop {
			return
		}

		sep := p.next()
		switch {
		case sep.kind == tokComma:
			continue
		case sep.kind == tokSemicolon || sep.kind == tokEOF:
			return
		case sep.isWord("ON"):
			// ON DUPLICATE KEY UPDATE ...
			p.skipStatement()
			return
		default:
			p.warn(sep.line, "unexpected %q after tuple in INSERT into %s; rest of statement skipped", sep.text, name)
			p.skipStatement()
			return
		}
	}
}

// parseTuple reads fields up to the tuple's closing parenthesis; the opening
// parenthesis has been consumed. Nested parentheses stay inside one field.
// stop reports that the statement ended inside the tuple (semicolon, EOF or an
// unterminated string), so the caller must not look for another tuple.
func (p *parser) parseTuple() (fields [][]token, stop bool, err error) {
	depth := 1
	var cur []token
	for {
		t := p.next()
		switch t.kind {
		case tokLParen:
			depth++
			cur = append(cur, t)
		case tokRParen:
			depth--
			if depth == 0 {
				if len(cur) > 0 || len(fields) > 0 {
					fields = append(fields, cur)
				}
				return fields, false, nil
			}
			cur = append(cur, t)
		case tokComma:
			if depth == 1 {
				fields = append(fields, cur)
				cur = nil
				continue
			}
			cur = append(cur, t)
		case tokSemicolon, tokEOF:
			return nil, true, errUnbalanced
		case tokError:
			return nil, true, fmt.Errorf("%w: %s", ErrUnterminatedString, preview(t.text))
		default:
			cur = append(cur, t)
		}
	}
}

func decodeRow(line int, cols *Columns, fields [][]token) (Row, error) {
	if len(fields) != len(cols.names) {
		return Row{}, fmt.Errorf("%d values for %d columns", len(fields), len(cols.names))
	}
	values := make([]Value, len(fields))
	for i, f := range fields {
		v, err := decodeField(f)
		if err != nil {
			return Row{}, fmt.Errorf("column %s: %w", cols.names[i], err)
		}
		values[i] = v
	}
	return NewRow(line, cols, values), nil
}

// decodeField decodes the tokens of one field. A charset introducer
// (_binary 'x', _utf8mb4 'x') decodes its string; other multi-token fields
// such as NOW() are kept as literal text.
func decodeField(toks []token) (Value, error) {
	switch {
	case len(toks) == 0:
		return Value{}, ErrEmptyValue
	case len(toks) == 1:
		if toks[0].kind == tokIdent {
			return Literal(identText(toks[0])), nil
		}
		return Decode(toks[0].text)
	case len(toks) == 2 && toks[0].kind == tokBare && strings.HasPrefix(toks[0].text, "_") && toks[1].kind == tokString:
		return Decode(toks[1].text)
	}

	var b strings.Builder
	for i, t := range toks {
		if i > 0 && wordLike(toks[i-1]) && wordLike(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return Literal(b.String()), nil
}

func wordLike(t token) bool {
	return t.kind == tokBare || t.kind == tokString || t.kind == tokIdent
}

var keyDefinitions = []string{"PRIMARY", "KEY", "INDEX", "UNIQUE", "FULLTEXT", "SPATIAL", "CONSTRAINT", "FOREIGN", "CHECK"}

// parseCreate records the column order of CREATE TABLE so that INSERTs
// without a column list can still be zipped into named rows.
func (p *parser) parseCreate() {
	if p.peek().isWord("TEMPORARY") {
		p.next()
	}
	if !p.peek().isWord("TABLE") {
		p.skipStatement()
		return
	}
	p.next()
	if p.peek().isWord("IF") {
		p.next() // IF
		p.next() // NOT
		p.next() // EXISTS
	}

	name, ok := p.parseTableName()
	if !ok || p.peek().kind != tokLParen {
		p.skipStatement()
		return
	}
	p.next()

	var cols []string
	depth := 1
	atDefStart := true
	for depth > 0 {
		t := p.next()
		switch t.kind {
		case tokEOF, tokSemicolon:
			return
		case tokError:
			p.warn(t.line, "unterminated string: %s", preview(t.text))
			return
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokComma:
			if depth == 1 {
				atDefStart = true
				continue
			}
		}
		if atDefStart && depth == 1 {
			atDefStart = false
			if col, ok := columnDefName(t); ok {
				cols = append(cols, col)
			}
		}
	}
	if len(cols) > 0 {
		p.d.schema[name] = cols
	}
	p.skipStatement()
}

// columnDefName returns the column name if t starts a column definition
// rather than a key or constraint.
func columnDefName(t token) (string, bool) {
	switch t.kind {
	case tokIdent:
		return identText(t), true
	case tokBare:
		for _, kw := range keyDefinitions {
			if t.isWord(kw) {
				return "", false
			}
		}
		return t.text, true
	}
	return "", false
}
