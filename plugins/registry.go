package plugins

// Registry is the statically declared list of every metadata plugin
// class the agent knows about, active or not. It is consulted by
// Manager both to build active instances and to report the full
// configuration surface to the coordinator.
var Registry = []Factory{
	{
		Name: "hash",
		Fields: []ConfigField{
			{Name: "algorithms", Description: "comma-separated digest list: md5,sha1,sha256", Default: "sha256"},
		},
		Build: NewHashPlugin,
	},
	{
		Name:   "size",
		Fields: nil,
		Build:  NewSizePlugin,
	},
	{
		Name: "magic",
		Fields: []ConfigField{
			{Name: "binary", Description: "path to the file(1) binary", Default: "file"},
		},
		Build: NewMagicPlugin,
	},
	{
		Name:   "pe",
		Fields: nil,
		Build:  NewPEPlugin,
	},
}
