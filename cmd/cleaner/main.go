// Cloud Cleaner - scheduled AWS idle-resource scanning with notifications.
package main

func main() {
	Execute()
}
