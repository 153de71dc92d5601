package dump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsOf(t *testing.T, d *Dump, table string) []Row {
	t.Helper()
	tbl, ok := d.Table(table)
	require.True(t, ok, "table %s not found", table)
	return tbl.Rows
}

func TestParseScenarioRow(t *testing.T) {
	d := Parse(`INSERT INTO modx_site_content (id,pagetitle,alias,parent,uri,published,deleted) VALUES (1,'Home','home',0,'',1,0);`)

	require.Empty(t, d.Warnings)
	rows := rowsOf(t, d, "modx_site_content")
	require.Len(t, rows, 1)

	r := rows[0]
	id, ok := r.Get("id").Int()
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "Home", r.Get("pagetitle").String())
	assert.Equal(t, "home", r.Get("alias").String())
	assert.Equal(t, KindString, r.Get("uri").Kind)
	assert.Equal(t, []string{"id", "pagetitle", "alias", "parent", "uri", "published", "deleted"}, r.Columns())
	assert.True(t, r.Get("missing").IsNull())
}

func TestParseCountsTupleGroups(t *testing.T) {
	src := `
-- MySQL dump 10.13
/*!40101 SET NAMES utf8mb4 */;
# a hash comment with a 'stray quote
DROP TABLE IF EXISTS ` + "`modx_site_content`" + `;
INSERT INTO ` + "`modx_site_content`" + ` (` + "`id`,`pagetitle`" + `) VALUES
  (1,'Home -- not a comment'),
  (2,'About, (us)'),
  (3,'Semi; colon');
INSERT INTO modx_site_htmlsnippets (name,snippet) VALUES ('footer','<p>Contact</p>');
insert into modx_site_content (id,pagetitle) values (4,'Later');
/* block
   comment */
`
	d := Parse(src)
	require.Empty(t, d.Warnings)

	content := rowsOf(t, d, "modx_site_content")
	require.Len(t, content, 4)
	assert.Equal(t, "Home -- not a comment", content[0].Get("pagetitle").String())
	assert.Equal(t, "About, (us)", content[1].Get("pagetitle").String())
	assert.Equal(t, "Semi; colon", content[2].Get("pagetitle").String())
	assert.Equal(t, "Later", content[3].Get("pagetitle").String())

	assert.Equal(t, 7, content[0].Line)
	assert.Equal(t, 8, content[1].Line)

	require.Len(t, rowsOf(t, d, "modx_site_htmlsnippets"), 1)

	names := make([]string, 0, len(d.Tables))
	for _, tbl := range d.Tables {
		names = append(names, tbl.Name)
	}
	assert.Equal(t, []string{"modx_site_content", "modx_site_htmlsnippets"}, names)
}

func TestParseMultilineStringValue(t *testing.T) {
	d := Parse("INSERT INTO t (a,b) VALUES (1,'first\nsecond\\nthird');\nINSERT INTO t (a,b) VALUES (2,'x');")
	require.Empty(t, d.Warnings)

	rows := rowsOf(t, d, "t")
	require.Len(t, rows, 2)
	assert.Equal(t, "first\nsecond\nthird", rows[0].Get("b").String())
	assert.Equal(t, 3, rows[1].Line)
}

func TestParseDropsCountMismatch(t *testing.T) {
	d := Parse(`INSERT INTO t (a,b) VALUES (1),(2,'x'),(3,'y','z');`)

	rows := rowsOf(t, d, "t")
	require.Len(t, rows, 1)
	assert.Equal(t, "x", rows[0].Get("b").String())

	require.Len(t, d.Warnings, 2)
	assert.Contains(t, d.Warnings[0].Message, "1 values for 2 columns")
	assert.Equal(t, "line 1", d.Warnings[0].Ref)
}

func TestParseDropsUnterminatedRow(t *testing.T) {
	d := Parse(`INSERT INTO t (a,b) VALUES (1,'ok'),(2,'bad);`)

	rows := rowsOf(t, d, "t")
	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rows[0].Get("b").String())

	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0].Message, "unterminated string")
}

func TestParseRecoversAfterUnbalancedTuple(t *testing.T) {
	d := Parse("INSERT INTO t (a) VALUES (1;\nINSERT INTO t (a) VALUES (2);")

	rows := rowsOf(t, d, "t")
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0].Get("a").String())
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0].Message, "unbalanced")
}

func TestParseDropsEmptyField(t *testing.T) {
	d := Parse(`INSERT INTO t (a,b,c) VALUES (1,,3),(4,5,6);`)

	rows := rowsOf(t, d, "t")
	require.Len(t, rows, 1)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0].Message, "column b")
}

func TestParseUsesCreateTableColumns(t *testing.T) {
	src := "CREATE TABLE IF NOT EXISTS `modx_site_htmlsnippets` (\n" +
		"  `id` int(10) unsigned NOT NULL AUTO_INCREMENT,\n" +
		"  `name` varchar(50) NOT NULL DEFAULT '',\n" +
		"  `snippet` mediumtext,\n" +
		"  PRIMARY KEY (`id`),\n" +
		"  UNIQUE KEY `name` (`name`)\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COMMENT='chunks, (fragments)';\n" +
		"INSERT INTO `modx_site_htmlsnippets` VALUES (1,'footer','<p>Contact</p>'),(2,'header',NULL);\n"

	d := Parse(src)
	require.Empty(t, d.Warnings)

	rows := rowsOf(t, d, "modx_site_htmlsnippets")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "name", "snippet"}, rows[0].Columns())
	assert.Equal(t, "<p>Contact</p>", rows[0].Get("snippet").String())
	assert.True(t, rows[1].Get("snippet").IsNull())
}

func TestParseWithoutKnownColumns(t *testing.T) {
	d := Parse(`INSERT INTO unknown VALUES (1,'x');`)

	_, ok := d.Table("unknown")
	assert.False(t, ok)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0].Message, "no column list")
}

func TestParseQualifiedNamesAndModifiers(t *testing.T) {
	src := "INSERT IGNORE INTO `site`.`modx_site_templates` (`id`,`templatename`) VALUES (1,'Home');\n" +
		"REPLACE INTO site.modx_site_templates (id,templatename) VALUES (2,'Page');\n" +
		"INSERT INTO `site`.modx_site_templates (id,templatename) VALUES (3,'Blog');\n" +
		"INSERT INTO site.`modx_site_templates` (id,templatename) VALUES (4,'News');"

	d := Parse(src)
	require.Empty(t, d.Warnings)
	assert.Len(t, rowsOf(t, d, "modx_site_templates"), 4)
	_, ok := d.Table("site")
	assert.False(t, ok, "schema name must not be taken as the table")
}

func TestParseExpressionsAndIntroducers(t *testing.T) {
	d := Parse(`INSERT INTO t (a,b,c) VALUES (NOW(),_binary 'raw',CONCAT('x', 'y')) ON DUPLICATE KEY UPDATE a=VALUES(a);`)
	require.Empty(t, d.Warnings)

	rows := rowsOf(t, d, "t")
	require.Len(t, rows, 1)
	assert.Equal(t, Literal("NOW()"), rows[0].Get("a"))
	assert.Equal(t, String("raw"), rows[0].Get("b"))
	assert.Equal(t, KindLiteral, rows[0].Get("c").Kind)
}

func TestParseSkipsInsertSelect(t *testing.T) {
	d := Parse("INSERT INTO t (a) SELECT a FROM other;\nINSERT INTO t (a) VALUES (1);")

	require.Len(t, rowsOf(t, d, "t"), 1)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0].Message, "unsupported INSERT form")
}

func TestParseReader(t *testing.T) {
	d, err := ParseReader(strings.NewReader(`INSERT INTO t (a) VALUES (1),(2),(3);`))
	require.NoError(t, err)
	assert.Len(t, rowsOf(t, d, "t"), 3)
}

func TestLexSkipsComments(t *testing.T) {
	toks := lex("-- c\nSELECT 1; # c\n/* c */ x--y")

	var kinds []tokenKind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.kind)
		texts = append(texts, tok.text)
	}
	assert.Equal(t, []tokenKind{tokBare, tokBare, tokSemicolon, tokBare, tokEOF}, kinds)
	assert.Equal(t, []string{"SELECT", "1", ";", "x--y", ""}, texts)
	assert.Equal(t, 2, toks[0].line)
}

func TestLexUnterminatedString(t *testing.T) {
	toks := lex("(1, 'abc")
	require.Len(t, toks, 5)
	assert.Equal(t, tokError, toks[3].kind)
	assert.Equal(t, "'abc", toks[3].text)
}
