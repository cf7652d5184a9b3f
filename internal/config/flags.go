package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/pflag"
)

// BindFlags registers one flag per field of opts, named by fieldNameToFlag
// and defaulting to the field's current value. The usage string comes from
// a `help` tag, falling back to the TOML key the flag overrides.
func BindFlags(fs *pflag.FlagSet, opts any) {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		name := fieldNameToFlag(field.Name)
		usage := field.Tag.Get("help")
		if usage == "" {
			usage = fmt.Sprintf("overrides %s", field.Tag.Get("toml"))
		}

		ptr := v.Field(i).Addr().Interface()
		switch p := ptr.(type) {
		case *string:
			fs.StringVar(p, name, *p, usage)
		case *bool:
			fs.BoolVar(p, name, *p, usage)
		case *int:
			fs.IntVar(p, name, *p, usage)
		case *time.Duration:
			fs.DurationVar(p, name, *p, usage)
		default:
			panic(fmt.Sprintf("config: unsupported option type %s for %s", field.Type, field.Name))
		}
	}
}
