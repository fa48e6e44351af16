package main

import (
	"fmt"
	"strings"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/account"
)

// hashPassword validates the new admin password and prints the config/.env lines to configure it.
func (cli *commandLine) hashPassword(uname, pwd string) error {
	np := account.NewPassword{Username: uname, Password: pwd}
	if err := np.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	hash, err := account.HashPassword(np.Password)
	if err != nil {
		return err
	}
	prefix := strings.ToUpper(cli.conf.Env)
	fmt.Fprintf(cli.stdout, "%s_ADMIN_USERNAME=%s\n", prefix, np.Username)
	// single quotes keep godotenv from expanding the $ of the hash
	fmt.Fprintf(cli.stdout, "%s_ADMIN_PASSWORDHASH='%s'\n", prefix, hash)
	return nil
}
