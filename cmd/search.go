/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/cryptocase/index"
)

func searchCommand(a *app) *cobra.Command {
	var elementType string
	searchCmd := &cobra.Command{
		Use:   "search <case> <query>",
		Short: "Full text search over the entities of a case",
		Long: `Search the case index. The query uses the sqlite fts5 syntax,
e.g. bitlocker, "evidence--<uuid>" or luks OR veracrypt. Use "*" together
with --type to list all elements of a type.`,
		Args: a.requireCase(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Index.Disabled {
				return errors.New("search index is disabled")
			}
			idx, err := index.Open(a.indexPath(args[0]))
			if err != nil {
				return err
			}
			defer idx.Close() // nolint:errcheck

			var elements []index.Element
			if args[1] == "*" && elementType != "" {
				elements, err = idx.Select(elementType)
			} else {
				elements, err = idx.Search(args[1])
			}
			if err != nil {
				return errors.Wrap(err, "search failed")
			}

			w := cmd.OutOrStdout()
			for _, element := range elements {
				if elementType != "" && element.Type() != elementType {
					continue
				}
				fmt.Fprintln(w, string(element))
			}
			return nil
		},
	}
	searchCmd.Flags().StringVar(&elementType, "type", "", "only return elements of this type (evidence, container, artefact, ...)")
	return searchCmd
}
