package nssdb_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/haguenau/mcdb/internal/nssdb"
)

// encodeOne runs a dataset's encoder and collects the inserted pairs.
func encodeOne(t *testing.T, dataset string, rec any) (keys [][]byte, value []byte) {
	t.Helper()

	caps, ok := nssdb.Lookup(dataset)
	if !ok {
		t.Fatalf("dataset %q not registered", dataset)
	}

	wi := &nssdb.WriteInfo{
		Scratch: make([]byte, 0, 64),
		Insert: func(key, val []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			keys = append(keys, k)

			v := make([]byte, len(val))
			copy(v, val)
			value = v

			return nil
		},
	}

	if err := caps.Encode(wi, rec); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	return keys, value
}

func Test_Passwd_Roundtrips_Through_Encode_And_Parse(t *testing.T) {
	t.Parallel()

	in := nssdb.Passwd{
		Name:  "amy",
		UID:   1000,
		GID:   100,
		Gecos: "Amy A.",
		Dir:   "/home/amy",
		Shell: "/bin/sh",
	}

	keys, value := encodeOne(t, "passwd", in)

	if len(keys) != 2 {
		t.Fatalf("passwd must insert under 2 keys, got %d", len(keys))
	}

	if !cmp.Equal(keys[0], nssdb.NameKey("amy")) || !cmp.Equal(keys[1], nssdb.IDKey(1000)) {
		t.Fatalf("unexpected keys %q", keys)
	}

	caps, _ := nssdb.Lookup("passwd")

	out, err := caps.Parse(value)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func Test_Group_Roundtrips_Through_Encode_And_Parse(t *testing.T) {
	t.Parallel()

	in := nssdb.Group{Name: "staff", GID: 50, Members: []string{"amy", "bob"}}

	keys, value := encodeOne(t, "group", in)

	if len(keys) != 2 {
		t.Fatalf("group must insert under 2 keys, got %d", len(keys))
	}

	caps, _ := nssdb.Lookup("group")

	out, err := caps.Parse(value)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func Test_Service_Inserts_Under_Name_Port_And_Alias_Keys(t *testing.T) {
	t.Parallel()

	in := nssdb.Service{Name: "http", Port: 80, Proto: "tcp", Aliases: []string{"www"}}

	keys, value := encodeOne(t, "services", in)

	want := [][]byte{
		nssdb.ServiceNameKey("http", "tcp"),
		nssdb.ServicePortKey(80, "tcp"),
		nssdb.ServiceNameKey("www", "tcp"),
	}

	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("key mismatch (-want +got):\n%s", diff)
	}

	caps, _ := nssdb.Lookup("services")

	out, err := caps.Parse(value)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Rejects_Truncated_Values(t *testing.T) {
	t.Parallel()

	for _, dataset := range nssdb.Datasets() {
		caps, _ := nssdb.Lookup(dataset)

		for _, value := range [][]byte{nil, {0xFF}, {3, 'a'}} {
			if _, err := caps.Parse(value); !errors.Is(err, nssdb.ErrBadRecord) {
				t.Fatalf("%s: Parse(%v) must return ErrBadRecord, got %v", dataset, value, err)
			}
		}
	}
}

func Test_ParseSourceLine_Parses_Flat_Formats(t *testing.T) {
	t.Parallel()

	pw, err := nssdb.ParseSourceLine("passwd", "amy:x:1000:100:Amy A.:/home/amy:/bin/sh")
	if err != nil {
		t.Fatalf("passwd line: %v", err)
	}

	wantPw := nssdb.Passwd{Name: "amy", UID: 1000, GID: 100, Gecos: "Amy A.", Dir: "/home/amy", Shell: "/bin/sh"}
	if diff := cmp.Diff(wantPw, pw); diff != "" {
		t.Fatalf("passwd mismatch (-want +got):\n%s", diff)
	}

	gr, err := nssdb.ParseSourceLine("group", "staff:x:50:amy,bob")
	if err != nil {
		t.Fatalf("group line: %v", err)
	}

	wantGr := nssdb.Group{Name: "staff", GID: 50, Members: []string{"amy", "bob"}}
	if diff := cmp.Diff(wantGr, gr); diff != "" {
		t.Fatalf("group mismatch (-want +got):\n%s", diff)
	}

	sv, err := nssdb.ParseSourceLine("services", "domain 53/udp dns")
	if err != nil {
		t.Fatalf("services line: %v", err)
	}

	wantSv := nssdb.Service{Name: "domain", Port: 53, Proto: "udp", Aliases: []string{"dns"}}
	if diff := cmp.Diff(wantSv, sv); diff != "" {
		t.Fatalf("services mismatch (-want +got):\n%s", diff)
	}
}

func Test_ParseSourceLine_Rejects_Malformed_Lines(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"passwd":   "amy:x:notanumber:100:g:/d:/s",
		"group":    "staff:x:50",
		"services": "http 80",
	}

	for dataset, line := range cases {
		if _, err := nssdb.ParseSourceLine(dataset, line); !errors.Is(err, nssdb.ErrBadRecord) {
			t.Fatalf("%s: ParseSourceLine(%q) must return ErrBadRecord, got %v", dataset, line, err)
		}
	}
}

func Test_LoadConfig_Accepts_JSONC_With_Comments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mcdb.hujson")

	content := `{
	// database directory
	"dir": "/var/db/mcdb",
	"databases": {
		"passwd": "passwd.mcdb",
		"services": "services.mcdb", // trailing comma is fine
	},
}`

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := nssdb.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Dir != "/var/db/mcdb" || cfg.Databases["passwd"] != "passwd.mcdb" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func Test_LoadConfig_Rejects_Unknown_Datasets(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mcdb.hujson")

	if err := os.WriteFile(path, []byte(`{"dir":".","databases":{"nosuch":"x.mcdb"}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := nssdb.LoadConfig(path); err == nil {
		t.Fatal("LoadConfig must reject unknown datasets")
	}
}
