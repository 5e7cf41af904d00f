package animfile

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

const (
	TOKEN_WORD = iota
	TOKEN_NUMBER
	TOKEN_LBRACE
	TOKEN_RBRACE
	TOKEN_SEMICOLON
	TOKEN_COMMENT
)

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	lexer.Add([]byte(`[a-zA-Z_][^ \t\n\r;\{\}#]*`), getToken(TOKEN_WORD))
	lexer.Add([]byte(`[\+\-]?[0-9]*\.?[0-9]+([eE][\+\-]?[0-9]+)?`), getToken(TOKEN_NUMBER))
	lexer.Add([]byte(`\{`), getToken(TOKEN_LBRACE))
	lexer.Add([]byte(`\}`), getToken(TOKEN_RBRACE))
	lexer.Add([]byte(`;`), getToken(TOKEN_SEMICOLON))
	lexer.Add([]byte(`#[^\n]*`), getToken(TOKEN_COMMENT))
	lexer.Add([]byte(`\s+`), skip)
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

type parseContext int

const (
	ctxTop parseContext = iota
	ctxAnimData
	ctxKeys
)

// Parse reads a full clip from the stream. The grammar is statement
// based: every statement ends with a semicolon or opens a brace block,
// so newlines carry no meaning and comments run to end of line.
func Parse(r io.Reader) (*Clip, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read clip")
	}

	scanner, err := lexer.Scanner(text)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}

	clip := &Clip{}
	ctx := ctxTop
	var curve *Curve
	var stmt []*lexmachine.Token

	for Itok, err, eos := scanner.Next(); !eos; Itok, err, eos = scanner.Next() {
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse token")
		}
		tok := Itok.(*lexmachine.Token)

		switch tok.Type {
		case TOKEN_COMMENT:
			continue
		case TOKEN_WORD, TOKEN_NUMBER:
			stmt = append(stmt, tok)
		case TOKEN_SEMICOLON:
			if len(stmt) == 0 {
				continue
			}
			switch ctx {
			case ctxTop:
				if err := clip.parseTopStatement(stmt, &curve); err != nil {
					return nil, err
				}
			case ctxAnimData:
				if err := curve.parseDataProp(stmt); err != nil {
					return nil, err
				}
			case ctxKeys:
				key, err := parseKeyframe(stmt)
				if err != nil {
					return nil, err
				}
				curve.Keys = append(curve.Keys, key)
			}
			stmt = stmt[:0]
		case TOKEN_LBRACE:
			switch {
			case ctx == ctxTop && len(stmt) == 1 && string(stmt[0].Lexeme) == "animData":
				if curve == nil || curve.Placeholder() {
					return nil, errors.Errorf("animData without curve on line %v", tok.StartLine)
				}
				ctx = ctxAnimData
			case ctx == ctxAnimData && len(stmt) == 1 && string(stmt[0].Lexeme) == "keys":
				ctx = ctxKeys
			default:
				return nil, errors.Errorf("Unexpected block on line %v", tok.StartLine)
			}
			stmt = stmt[:0]
		case TOKEN_RBRACE:
			if len(stmt) != 0 {
				return nil, errors.Errorf("Unterminated statement on line %v", tok.StartLine)
			}
			switch ctx {
			case ctxKeys:
				ctx = ctxAnimData
			case ctxAnimData:
				ctx = ctxTop
			default:
				return nil, errors.Errorf("Unbalanced block close on line %v", tok.StartLine)
			}
		}
	}
	if ctx != ctxTop || len(stmt) != 0 {
		return nil, errors.Errorf("Truncated clip")
	}
	return clip, nil
}

func joinLexemes(toks []*lexmachine.Token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.Write(t.Lexeme)
	}
	return sb.String()
}

func statementInt(tok *lexmachine.Token) (int, error) {
	v, err := strconv.Atoi(string(tok.Lexeme))
	if err != nil {
		return 0, errors.Errorf("Expected integer on line %v (%q)", tok.StartLine, tok.Lexeme)
	}
	return v, nil
}

func (c *Clip) parseTopStatement(stmt []*lexmachine.Token, curve **Curve) error {
	name := string(stmt[0].Lexeme)
	if name == "anim" {
		cv, err := parseAnimStatement(stmt)
		if err != nil {
			return err
		}
		c.Curves = append(c.Curves, cv)
		*curve = cv
		return nil
	}

	if len(stmt) < 2 {
		return errors.Errorf("Header property %q without value on line %v", name, stmt[0].StartLine)
	}
	// Version strings may lex as several number tokens; rejoining the
	// lexemes recovers the raw value.
	value := joinLexemes(stmt[1:])
	var err error
	switch name {
	case "animVersion":
		c.Version = value
	case "mayaVersion":
		c.SourceVersion = value
	case "timeUnit":
		c.TimeUnit = value
	case "linearUnit":
		c.LinearUnit = value
	case "angularUnit":
		c.AngularUnit = value
	case "startTime":
		c.StartTime, err = statementInt(stmt[1])
	case "endTime":
		c.EndTime, err = statementInt(stmt[1])
	}
	return err
}

func parseAnimStatement(stmt []*lexmachine.Token) (*Curve, error) {
	props := stmt[1:]
	cv := &Curve{}

	// Short form: node row children index, a hierarchy placeholder.
	// Long form prepends group.attr and attr.
	switch len(props) {
	case 4:
		cv.Node = string(props[0].Lexeme)
	case 6:
		full := string(props[0].Lexeme)
		if dot := strings.IndexByte(full, '.'); dot >= 0 {
			cv.Attr = full[dot+1:]
		} else {
			cv.Attr = full
		}
		cv.Node = string(props[2].Lexeme)
	default:
		return nil, errors.Errorf("Malformed anim statement on line %v", stmt[0].StartLine)
	}

	var err error
	if cv.Row, err = statementInt(props[len(props)-3]); err != nil {
		return nil, err
	}
	if cv.Children, err = statementInt(props[len(props)-2]); err != nil {
		return nil, err
	}
	if cv.Index, err = statementInt(props[len(props)-1]); err != nil {
		return nil, err
	}
	return cv, nil
}

func (c *Curve) parseDataProp(stmt []*lexmachine.Token) error {
	if len(stmt) < 2 {
		return errors.Errorf("animData property without value on line %v", stmt[0].StartLine)
	}
	value := string(stmt[1].Lexeme)
	switch string(stmt[0].Lexeme) {
	case "input":
		c.Input = value
	case "output":
		c.Output = value
	case "weighted":
		c.Weighted = value != "0"
	case "tangentAngleUnit":
		c.TangentAngleUnit = value
	case "preInfinity":
		c.PreInfinity = value
	case "postInfinity":
		c.PostInfinity = value
	}
	return nil
}

func statementFloat(tok *lexmachine.Token) (float64, error) {
	v, err := strconv.ParseFloat(string(tok.Lexeme), 64)
	if err != nil {
		return 0, errors.Errorf("Expected number on line %v (%q)", tok.StartLine, tok.Lexeme)
	}
	return v, nil
}

// parseKeyframe reads one key statement: time, value, in and out
// tangent types, three lock/breakdown flags, then an angle and weight
// pair for each fixed tangent.
func parseKeyframe(stmt []*lexmachine.Token) (Keyframe, error) {
	var k Keyframe
	if len(stmt) < 7 {
		return k, errors.Errorf("Malformed keyframe on line %v", stmt[0].StartLine)
	}

	var err error
	if k.Time, err = statementFloat(stmt[0]); err != nil {
		return k, err
	}
	if k.Value, err = statementFloat(stmt[1]); err != nil {
		return k, err
	}
	k.TanIn = string(stmt[2].Lexeme)
	k.TanOut = string(stmt[3].Lexeme)
	k.LockTangent = string(stmt[4].Lexeme) != "0"
	k.LockWeight = string(stmt[5].Lexeme) != "0"
	k.Breakdown = string(stmt[6].Lexeme) != "0"

	next := 7
	readPair := func(angle, weight *float64) error {
		if len(stmt) < next+2 {
			return errors.Errorf("Missing fixed tangent values on line %v", stmt[0].StartLine)
		}
		if *angle, err = statementFloat(stmt[next]); err != nil {
			return err
		}
		if *weight, err = statementFloat(stmt[next+1]); err != nil {
			return err
		}
		next += 2
		return nil
	}
	if k.TanIn == "fixed" {
		if err := readPair(&k.InAngle, &k.InWeight); err != nil {
			return k, err
		}
	}
	if k.TanOut == "fixed" {
		if err := readPair(&k.OutAngle, &k.OutWeight); err != nil {
			return k, err
		}
	}
	return k, nil
}
