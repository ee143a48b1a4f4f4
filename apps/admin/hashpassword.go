package main

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword prints the bcrypt hash to set as the admin password hash
// in the environment.
func (cli *commandLine) hashPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}
