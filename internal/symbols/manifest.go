package symbols

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed core.yaml
var coreManifest []byte

// Manifest describes symbols that exist without a source IR body: the core
// library and any externally compiled libraries.
type Manifest struct {
	Classes   []ManifestClass    `yaml:"classes"`
	Functions []ManifestFunction `yaml:"functions"`
	Fields    []ManifestField    `yaml:"fields"`
}

type ManifestClass struct {
	Name         string             `yaml:"name"`
	Super        string             `yaml:"super"`
	Fields       []ManifestField    `yaml:"fields"`
	Constructors []ManifestFunction `yaml:"constructors"`
	Factories    []ManifestFunction `yaml:"factories"`
	Methods      []ManifestFunction `yaml:"methods"`
}

type ManifestFunction struct {
	Name string `yaml:"name"`
	// Kind is method (default), getter or setter.
	Kind       string   `yaml:"kind"`
	Static     bool     `yaml:"static"`
	Const      bool     `yaml:"const"`
	Parameters int      `yaml:"parameters"`
	Optional   int      `yaml:"optional"`
	Named      []string `yaml:"named"`
	Intrinsic  string   `yaml:"intrinsic"`
}

type ManifestField struct {
	Name   string `yaml:"name"`
	Static bool   `yaml:"static"`
	Const  bool   `yaml:"const"`
	Final  bool   `yaml:"final"`
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	for _, c := range m.Classes {
		if c.Name == "" {
			return nil, fmt.Errorf("invalid manifest: class without a name")
		}
	}
	for _, f := range m.Functions {
		if f.Name == "" {
			return nil, fmt.Errorf("invalid manifest: function without a name")
		}
	}
	return &m, nil
}

// LoadCore registers the embedded core manifest.
func (t *Table) LoadCore() error {
	return t.LoadManifest(coreManifest)
}

// LoadManifestFile registers the manifest stored at path.
func (t *Table) LoadManifestFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	if err := t.LoadManifest(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadManifest registers every symbol of a YAML manifest. Classes may refer
// to superclasses declared later in the same manifest or already registered.
func (t *Table) LoadManifest(data []byte) error {
	m, err := ParseManifest(data)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pending := make(map[string]*Class, len(m.Classes))
	for _, mc := range m.Classes {
		_, defined := t.classes[mc.Name]
		if _, dup := pending[mc.Name]; defined || dup {
			return fmt.Errorf("class %s is already defined", mc.Name)
		}
		pending[mc.Name] = &Class{Name: mc.Name}
	}
	for _, mc := range m.Classes {
		if mc.Super == "" {
			continue
		}
		super, ok := pending[mc.Super]
		if !ok {
			super, ok = t.classes[mc.Super]
		}
		if !ok {
			return fmt.Errorf("class %s extends unknown class %s", mc.Name, mc.Super)
		}
		pending[mc.Name].Super = super
	}

	for _, mc := range m.Classes {
		class := pending[mc.Name]
		t.classes[mc.Name] = class

		for _, mf := range mc.Fields {
			t.addField(&Field{Name: mf.Name, Owner: class, IsStatic: mf.Static, IsConst: mf.Const, IsFinal: mf.Final || mf.Const})
		}
		for _, ctor := range mc.Constructors {
			fn := manifestFunction(ctor, class)
			fn.Kind = ConstructorFunction
			fn.Name = ConstructorName(class.Name, ctor.Name)
			t.constructors[refOf(class, ctor.Name)] = fn
		}
		for _, factory := range mc.Factories {
			fn := manifestFunction(factory, class)
			fn.Kind = FactoryFunction
			fn.IsStatic = true
			fn.Name = FactoryName(class.Name, factory.Name)
			t.constructors[refOf(class, factory.Name)] = fn
		}
		for _, method := range mc.Methods {
			fn := manifestFunction(method, class)
			t.functions[refOf(class, fn.Name)] = fn
		}
	}

	for _, mf := range m.Functions {
		fn := manifestFunction(mf, nil)
		fn.IsStatic = true
		t.functions[refOf(nil, fn.Name)] = fn
	}
	for _, mf := range m.Fields {
		t.addField(&Field{Name: mf.Name, IsStatic: true, IsConst: mf.Const, IsFinal: mf.Final || mf.Const})
	}
	return nil
}

func manifestFunction(mf ManifestFunction, owner *Class) *Function {
	fn := &Function{
		Name:            mf.Name,
		Owner:           owner,
		Kind:            RegularFunction,
		IsStatic:        mf.Static,
		IsConst:         mf.Const,
		IsExternal:      true,
		Intrinsic:       mf.Intrinsic,
		PositionalCount: mf.Parameters + mf.Optional,
		RequiredCount:   mf.Parameters,
		NamedParameters: mf.Named,
	}
	switch mf.Kind {
	case "getter":
		fn.Kind = GetterFunction
		fn.Name = GetterName(mf.Name)
	case "setter":
		fn.Kind = SetterFunction
		fn.Name = SetterName(mf.Name)
	}
	return fn
}
