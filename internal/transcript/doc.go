// Package transcript turns a captured browsing session into a replayable
// [Session].
//
// A transcript is plain text made of blocks separated by a line of dashes
// ([Separator]). Each block starts with the URL that was visited, followed by
// the request exactly as it went over the wire and, later in the same block,
// the response status line and headers:
//
//	http://www.example.com/login
//
//	POST /login HTTP/1.1
//	Host: www.example.com
//	Content-Type: application/x-www-form-urlencoded
//	Content-Length: 20
//	user=bob&pass=hunter
//
//	HTTP/1.1 302 Found
//	Date: Tue, 15 Nov 1994 08:12:31 GMT
//	Location: /home
//	----------------------------------------------------------
//
// Parsing happens in three steps:
//   - [Lex] splits the input into [Block] values;
//   - [ParseBlock] turns one block into an [Exchange], recovering the request
//     body from the declared Content-Length with [SplitBody];
//   - a [Builder] applies session-wide rules (think-time delays, keep-alive
//     adoption, entry caps) and produces the [Session].
//
// The Session is immutable once built and is shared by every replay worker.
package transcript
