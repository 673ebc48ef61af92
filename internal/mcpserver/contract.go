package mcpserver

// RecordFormat describes the dice-roll record fields and the filter
// parameters accepted by the record tools.
const RecordFormat = `# Rollbook Record Format

Each record is one dice roll made by a character on a date.

## Fields

| Field            | Type    | Rules                                        |
|------------------|---------|----------------------------------------------|
| ` + "`character_name`" + ` | string  | REQUIRED, non-blank after trimming           |
| ` + "`date`" + `           | string  | REQUIRED, YYYY-MM-DD, on or after 2000-01-01 |
| ` + "`roll_value`" + `     | integer | REQUIRED, 0 to 100 inclusive; 0 is valid     |
| ` + "`notes`" + `          | string  | OPTIONAL, free text, may span lines          |

## Filters

` + "`find_records`" + ` and ` + "`export_records`" + ` take the same optional filters.
An omitted filter matches every record.

- ` + "`name`" + `: character names, comma separated. Exact match.
- ` + "`from`" + `, ` + "`to`" + `: inclusive date range, YYYY-MM-DD.
- ` + "`min`" + `, ` + "`max`" + `: inclusive roll range, clamped to 0..100.

## Export

CSV with the header ` + "`character_name,date,roll_value,notes`" + `, one row per
matching record in insertion order. Fields holding commas, quotes or
newlines are quoted.

## Example

` + "```" + `json
{"character_name": "Alice", "date": "2024-01-01", "roll_value": 55, "notes": "opened the vault"}
` + "```" + `
`
