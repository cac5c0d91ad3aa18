package v1

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestDecodeRequest_Variants(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("6f1c9a52-3f0e-4d8e-9b59-2c1aa3f1d001")
	reason := "ctrl+c"

	cases := []struct {
		in   string
		want Request
	}{
		{in: `{"kind":"Register","nick":"alice","client_id":"6f1c9a52-3f0e-4d8e-9b59-2c1aa3f1d001"}`, want: Register{Nick: "alice", ClientID: id}},
		{in: `{"kind":"Register","nick":"bob"}`, want: Register{Nick: "bob"}},
		{in: `{"kind":"CreateGroup","group":"team"}`, want: CreateGroup{Group: "team"}},
		{in: `{"kind":"Invite","group":"team","nick":"bob"}`, want: Invite{Group: "team", Nick: "bob"}},
		{in: `{"kind":"JoinGroup","group":"team","invite_code":"aB3dE9"}`, want: JoinGroup{Group: "team", InviteCode: "aB3dE9"}},
		{in: `{"kind":"LeaveGroup","group":"team"}`, want: LeaveGroup{Group: "team"}},
		{in: `{"kind":"SendMessage","group":"team","text":"hi","nick":"alice"}`, want: SendMessage{Group: "team", Text: "hi", Nick: "alice"}},
		{in: `{"kind":"GlobalMessage","text":"hello all"}`, want: GlobalMessage{Text: "hello all"}},
		{in: `{"kind":"ListGroups"}`, want: ListGroups{}},
		{in: `{"kind":"ListUsers"}`, want: ListUsers{}},
		{in: `{"kind":"Logout"}`, want: Logout{}},
		{in: `{"kind":"Logout","reason":"ctrl+c"}`, want: Logout{Reason: &reason}},
		{in: "  {\"kind\":\"Ping\"}\r\n", want: Ping{}},
	}

	for _, tc := range cases {
		got, err := DecodeRequest([]byte(tc.in))
		if err != nil {
			t.Fatalf("DecodeRequest(%s) err=%v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("DecodeRequest(%s)=%#v want=%#v", tc.in, got, tc.want)
		}
	}
}

func TestDecodeRequest_Malformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		``,
		`not json`,
		`{"group":"team"}`,
		`{"kind":""}`,
		`{"kind":"Register","nick":"alice","client_id":"nope"}`,
		`{"kind":"CreateGroup","group":42}`,
	}
	for _, in := range cases {
		if _, err := DecodeRequest([]byte(in)); err == nil {
			t.Fatalf("DecodeRequest(%q) expected error", in)
		}
	}

	_, err := DecodeRequest([]byte(`{"kind":"SendPvtMessage","to":"bob","text":"x"}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestEncodeResponse_Shape(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Response
		want string
	}{
		{in: Pong{}, want: `{"kind":"Pong"}`},
		{in: RegisteredOK(), want: `{"kind":"Registered","ok":true}`},
		{in: RegisteredFail("taken"), want: `{"kind":"Registered","ok":false,"reason":"taken"}`},
		{in: Message{Group: "team", From: "alice", Text: "hi"}, want: `{"kind":"Message","group":"team","from":"alice","text":"hi"}`},
		{in: GlobalChat{From: "alice", Text: "yo"}, want: `{"kind":"GlobalMessage","from":"alice","text":"yo"}`},
		{in: Users{Users: []string{"alice (you)"}}, want: `{"kind":"ListUsers","users":["alice (you)"]}`},
		{in: InviteCode{Group: "team", Code: "X1y2Z3", ClientID: "alice"}, want: `{"kind":"InviteCode","group":"team","code":"X1y2Z3","client_id":"alice"}`},
	}

	for _, tc := range cases {
		b, err := EncodeResponse(tc.in)
		if err != nil {
			t.Fatalf("EncodeResponse(%#v) err=%v", tc.in, err)
		}
		if !strings.HasSuffix(string(b), "\n") {
			t.Fatalf("EncodeResponse(%#v) missing newline", tc.in)
		}
		if got := strings.TrimSuffix(string(b), "\n"); got != tc.want {
			t.Fatalf("EncodeResponse()=%s want=%s", got, tc.want)
		}
	}
}

func TestResponseCodec_ClientSideDecode(t *testing.T) {
	t.Parallel()

	in := []Response{
		Joined{Group: "team"},
		Groups{Groups: []string{"a", "b"}},
		Error{Reason: "not registered"},
		InviteCodeForMe{Group: "team", Code: "abc123"},
		Pong{},
	}
	for _, r := range in {
		b, err := EncodeResponse(r)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeResponse(b)
		if err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
		if !reflect.DeepEqual(got, r) {
			t.Fatalf("decoded=%#v want=%#v", got, r)
		}
	}
}

func TestEncodeRequest_Register(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("6f1c9a52-3f0e-4d8e-9b59-2c1aa3f1d001")
	b, err := EncodeRequest(Register{Nick: "alice", ClientID: id})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"kind":"Register","nick":"alice","client_id":"6f1c9a52-3f0e-4d8e-9b59-2c1aa3f1d001"}` + "\n"
	if string(b) != want {
		t.Fatalf("EncodeRequest()=%q want=%q", b, want)
	}
}
