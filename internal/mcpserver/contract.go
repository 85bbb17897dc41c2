package mcpserver

// LinkRules explains how note files map to slugs and how wiki-links resolve, so
// that LLM clients can write links that land where they expect.
const LinkRules = `# Link Resolution Rules

Every ` + "`" + `.md` + "`" + ` file in the vault is a note. Hidden entries (names starting with a dot),
` + "`" + `node_modules/` + "`" + `, and anything listed in ` + "`" + `.vaultignore` + "`" + ` are skipped.

## Slugs

A note's slug is its path without ` + "`" + `.md` + "`" + `, normalised segment by segment:

1. Lowercase.
2. Spaces, tabs, ` + "`" + `_` + "`" + ` and ` + "`" + `-` + "`" + ` collapse into a single ` + "`" + `-` + "`" + `.
3. Only ` + "`" + `a-z` + "`" + `, ` + "`" + `0-9` + "`" + `, Hangul syllables and ` + "`" + `-` + "`" + ` are kept.
4. Segments that end up empty are dropped.

` + "`" + `Folder Name/Sub Note.md` + "`" + ` becomes ` + "`" + `folder-name/sub-note` + "`" + `. Two files that normalise to
the same slug collide; the first one found wins and the other is reported.

## Resolving [[links]]

The text inside ` + "`" + `[[ ]]` + "`" + ` is cut at the first ` + "`" + `|` + "`" + ` (alias) and then at the first ` + "`" + `#` + "`" + `
(section). What remains is normalised like a slug, then:

1. If it equals a full slug, that note is the target. ` + "`" + `[[folder/note]]` + "`" + ` always works.
2. Otherwise it is matched against note names alone (the last slug segment).
   - One match: that note.
   - Several matches: the link is ambiguous. The shallowest path wins, then the
     alphabetically first slug. The link still resolves and a diagnostic is raised.
3. A bare name that matches a top-level note is also reported as ambiguous when
   deeper notes share the name.
4. No match: the link is dangling and produces no edge.

There is no fuzzy matching. Links inside code spans and fenced code blocks are
ignored, and a note linking to itself produces no edge.

## Writing links

- Prefer ` + "`" + `[[folder/note]]` + "`" + ` whenever a name is used in more than one folder.
- Call ` + "`" + `resolve_link` + "`" + ` to check a target before relying on it.
- Read ` + "`" + `vaultgraph://diagnostics` + "`" + ` for the current list of ambiguous and dangling links.
`
