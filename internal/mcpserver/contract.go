package mcpserver

// PageFormatContract describes the canonical page format that LLM
// consumers should follow when creating or updating pages.
const PageFormatContract = `# Ansuz Page Format Contract

Every page stored in Ansuz MUST follow this structure.

## Structure

` + "```" + `
title: Human-readable title
tags: comma, separated, tags

Body text in standard Markdown.

Use [[wikilinks]] to reference other pages by URL.
Use [[target|alias]] for display text that differs from the target.
` + "```" + `

## Rules

1. **The metadata header comes first.** It is a block of ` + "`" + `key: value` + "`" + `
   lines, one per line, ending at the first blank line. Everything after the
   blank line is the Markdown body.
2. **Header keys are lowercase** single words with no colons. ` + "`" + `title` + "`" + ` and
   ` + "`" + `tags` + "`" + ` are the conventional keys; arbitrary extra keys are allowed and
   preserved.
3. **` + "`" + `tags` + "`" + ` is a single comma-separated string**, not a list
   (e.g. ` + "`" + `tags: project-x, meeting-notes` + "`" + `).
4. **Reserved rating keys** ` + "`" + `rating` + "`" + `, ` + "`" + `total` + "`" + ` and ` + "`" + `timesrated` + "`" + ` are
   maintained by the rating system. Do not set them by hand.
5. **Page URLs** are lowercase with underscores instead of spaces and forward
   slashes as separators (e.g. ` + "`" + `guides/getting_started` + "`" + `). No ` + "`" + `.md` + "`" + `
   extension in URLs or wikilinks; the storage layer adds it.
6. **Wikilinks** use double brackets: ` + "`" + `[[other_page]]` + "`" + ` or
   ` + "`" + `[[guides/setup|the setup guide]]` + "`" + `. Targets are normalized the same way
   as URLs.
7. **Encoding** is UTF-8 with Unix line endings.

## Example

` + "```" + `
title: Weekly standup 2025-01-20
tags: meeting-notes, project-x

# Weekly standup 2025-01-20

Attendees: Alice, Bob.

## Action items

- [[people/alice]] to review the [[design_doc]]
- Bob to update [[project_x/roadmap|the roadmap]]
` + "```" + `
`
