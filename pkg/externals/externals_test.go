package externals

import (
	"slices"
	"testing"
)

func TestPackageName(t *testing.T) {
	tests := []struct{ ref, want string }{
		{"lodash", "lodash"},
		{"lodash/fp", "lodash"},
		{"lodash/fp/map", "lodash"},
		{"@babel/runtime", "@babel/runtime"},
		{"@babel/runtime/helpers/extends", "@babel/runtime"},
		{"@scope", "@scope"},
		{"./local", "./local"},
		{"/abs/path", "/abs/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := PackageName(tt.ref); got != tt.want {
			t.Errorf("PackageName(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestCore(t *testing.T) {
	c := NewCore([]string{"react", " react-native ", "", "react", "@expo/vector-icons"})

	want := []string{"@expo/vector-icons", "react", "react-native"}
	if got := c.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	for _, ref := range []string{"react", "react-native/Libraries/Image/AssetRegistry", "@expo/vector-icons/Ionicons"} {
		if !c.Contains(ref) {
			t.Errorf("Contains(%q) = false, want true", ref)
		}
	}
	for _, ref := range []string{"react-dom", "left-pad", "@expo/other"} {
		if c.Contains(ref) {
			t.Errorf("Contains(%q) = true, want false", ref)
		}
	}
}

func TestCoreNamesIsCopy(t *testing.T) {
	c := NewCore([]string{"react"})
	names := c.Names()
	names[0] = "mutated"
	if !c.Contains("react") || c.Contains("mutated") {
		t.Error("Names() must not expose internal state")
	}
}

func TestNilCore(t *testing.T) {
	var c *Core
	if c.Contains("react") || c.Names() != nil {
		t.Error("nil Core should behave as empty")
	}
}

func TestDefaultCore(t *testing.T) {
	c := DefaultCore()
	for _, n := range []string{"react", "react-native", "expo"} {
		if !c.Contains(n) {
			t.Errorf("DefaultCore() missing %q", n)
		}
	}
}

func TestRulesMatch(t *testing.T) {
	rules, err := CompileRules([]RuleSpec{
		{Pattern: `^lib-x/internal/`, Externalize: false},
		{Pattern: `^lib-x/[^/]+`, Externalize: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ref                  string
		externalize, matched bool
	}{
		{"lib-x/Button", true, true},
		{"lib-x/internal/thing", false, true},
		{"lib-x", false, false},
		{"other/Button", false, false},
	}
	for _, tt := range tests {
		ext, ok := rules.Match(tt.ref)
		if ext != tt.externalize || ok != tt.matched {
			t.Errorf("Match(%q) = (%v, %v), want (%v, %v)", tt.ref, ext, ok, tt.externalize, tt.matched)
		}
	}
}

func TestDefaultPassthrough(t *testing.T) {
	rules := DefaultPassthrough()
	if ext, ok := rules.Match("react-native-gesture-handler/Swipeable"); !ok || !ext {
		t.Error("gesture handler submodule should be externalized")
	}
	if _, ok := rules.Match("react-native-gesture-handler/lib/a/b"); ok {
		t.Error("nested gesture handler path should not match")
	}
	if _, ok := rules.Match("react-native-gesture-handler"); ok {
		t.Error("bare package should not match the deep-import rule")
	}
}

func TestCompileRulesInvalid(t *testing.T) {
	if _, err := CompileRules([]RuleSpec{{Pattern: "("}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
