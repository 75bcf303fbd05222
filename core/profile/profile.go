// Package profile manages the connection credentials used to reach an
// Elasticsearch cluster: a host list, a username and a password.
package profile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

var validate = newValidator()

// Profile holds the credentials a client needs to connect to a cluster.
type Profile struct {
	Hosts    []string
	Username string
	Password string
}

// Record is the persisted shape of a Profile.
type Record struct {
	Hosts []string `yaml:"hosts" validate:"required,min=1,dive,required"`
	User  string   `yaml:"user" validate:"required"`
	Pass  string   `yaml:"pass" validate:"required"`
}

// Store reads and writes serialised records by name.
type Store interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

// Load reads the record saved under name and converts it into a Profile.
func Load(store Store, name string) (Profile, error) {
	data, err := store.Read(name)
	if err != nil {
		return Profile{}, err
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Profile{}, MalformedRecordError{Name: name, Err: err}
	}

	p, err := FromRecord(rec)
	if err != nil {
		var merr MalformedRecordError
		if errors.As(err, &merr) {
			merr.Name = name
			return Profile{}, merr
		}
		return Profile{}, err
	}
	return p, nil
}

// Save persists the profile under name, replacing any existing record.
func (p Profile) Save(store Store, name string) error {
	data, err := yaml.Marshal(p.ToRecord())
	if err != nil {
		return fmt.Errorf("encode profile %q: %w", name, err)
	}
	if err := store.Write(name, data); err != nil {
		return fmt.Errorf("save profile %q: %w", name, err)
	}
	return nil
}

func (p Profile) ToRecord() Record {
	var hosts []string
	if p.Hosts != nil {
		hosts = make([]string, len(p.Hosts))
		copy(hosts, p.Hosts)
	}
	return Record{
		Hosts: hosts,
		User:  p.Username,
		Pass:  p.Password,
	}
}

func FromRecord(rec Record) (Profile, error) {
	if fields := missingFields(rec); len(fields) > 0 {
		return Profile{}, MalformedRecordError{
			Fields: fields,
			Err:    IncompleteError{Fields: fields},
		}
	}

	hosts := make([]string, len(rec.Hosts))
	copy(hosts, rec.Hosts)
	return Profile{
		Hosts:    hosts,
		Username: rec.User,
		Password: rec.Pass,
	}, nil
}

// Validate reports an IncompleteError when any credential is empty.
func (p Profile) Validate() error {
	if fields := missingFields(p.ToRecord()); len(fields) > 0 {
		return IncompleteError{Fields: fields}
	}
	return nil
}

// String renders the profile with the password masked.
func (p Profile) String() string {
	return fmt.Sprintf("hosts=%v user=%s pass=%s", p.Hosts, p.Username, mask(p.Password))
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "******"
}

func missingFields(rec Record) []string {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	seen := make(map[string]bool, len(verrs))
	var fields []string
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		fields = append(fields, fe.Field())
	}
	return fields
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}
