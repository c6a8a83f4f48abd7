package flows

import (
	"regexp"
	"strconv"
)

var (
	issueRefPattern    = regexp.MustCompile(`#(\d+)`)
	moveCommandPattern = regexp.MustCompile(`(?:^|\s)/move(?:\s+to)?\s+(\S+)`)
)

// issueFromCommitMessage returns the first issue referenced in a commit
// message as "#<digits>". The first match wins.
func issueFromCommitMessage(message string) (int, bool) {
	match := issueRefPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	number, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return number, true
}

// parseMoveCommand extracts the target repository from a "/move" command in
// a comment body. Both "/move other-repo" and "/move to owner/other-repo"
// forms are accepted; the token must follow "/move" as its own word, so
// "/movex foo" is not a command.
func parseMoveCommand(body string) (string, bool) {
	match := moveCommandPattern.FindStringSubmatch(body)
	if match == nil {
		return "", false
	}
	return match[1], true
}
