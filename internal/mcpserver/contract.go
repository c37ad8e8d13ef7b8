package mcpserver

// CommandReference describes the chat commands and the finding fields, for
// LLM consumers that relay lookups to users.
const CommandReference = `# pfnbot command reference

## Chat commands

Commands are matched case-sensitively at the start of a message.

| Message | Reply |
|---------|-------|
| ` + "`!pfnbot ref <ref>`" + ` | The capture image for <ref>, posted to the announcement channel. |
| ` + "`!pfnbot`" + ` (anything else after it) | A status line in the channel the command came from. |

Unknown refs get "Nie znalazłem detekcji o podanym refie". A ref shared by
several captures gets "Ochuj :o"; refs are 10 hex characters of an MD5 of the
capture path, so collisions are possible and are not disambiguated.

## Finding fields

- name: capture file name, e.g. P20230615_223045_P.bmp
- path: full path on the capture host
- date: YYYY-MM-DD taken from the file name
- time: HH:MM:SS taken from the file name
- ref:  short lookup code
`
